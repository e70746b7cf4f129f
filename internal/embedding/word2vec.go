package embedding

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/vector"
)

// ReadWord2Vec decodes a binary word2vec table: an ASCII "V D" header line,
// then per entry the token up to a space and D little-endian float32 values,
// optionally followed by a newline.
func ReadWord2Vec(ctx context.Context, r io.Reader, logger *zap.Logger) (*vector.Store, error) {
	br := bufio.NewReaderSize(r, readBufferSize)
	header, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformed, err)
	}
	count, dims, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	store, err := vector.NewStore(dims)
	if err != nil {
		return nil, err
	}

	values := make([]float32, dims)
	for i := 0; i < count; i++ {
		if i%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		word, err := readToken(br)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, values); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%q): %v", ErrMalformed, i, word, err)
		}
		if err := add(store, logger, word, values); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// WriteWord2Vec encodes store in the binary word2vec layout.
func WriteWord2Vec(w io.Writer, store *vector.Store) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", store.Size(), store.Dimensions()); err != nil {
		return err
	}
	for key, v := range store.All() {
		if _, err := bw.WriteString(key + " "); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, v.Values()); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func parseHeader(line string) (count, dims int, err error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("%w: header %q", ErrMalformed, strings.TrimSpace(line))
	}
	if count, err = strconv.Atoi(fields[0]); err != nil || count < 0 {
		return 0, 0, fmt.Errorf("%w: vocabulary size %q", ErrMalformed, fields[0])
	}
	if dims, err = strconv.Atoi(fields[1]); err != nil || dims <= 0 {
		return 0, 0, fmt.Errorf("%w: dimensions %q", ErrMalformed, fields[1])
	}
	return count, dims, nil
}

// readToken reads bytes up to the next space, skipping the newline that may
// trail the previous vector.
func readToken(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		if b == ' ' {
			if sb.Len() == 0 {
				continue
			}
			return sb.String(), nil
		}
		if b == '\n' && sb.Len() == 0 {
			continue
		}
		sb.WriteByte(b)
	}
}
