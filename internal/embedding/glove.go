package embedding

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/analogyeval/internal/vector"
)

// ReadGloVe decodes a GloVe binary table. vocab holds one "word count" line
// per entry in row order; vecs holds one row of D+1 little-endian float64
// values per word, the last being the bias, which is dropped. D is inferred
// from size, the byte length of vecs.
func ReadGloVe(ctx context.Context, vocab io.Reader, vecs io.Reader, size int64) (*vector.Store, error) {
	words, err := readVocabulary(vocab)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary", ErrMalformed)
	}
	rowBytes := int64(len(words)) * 8
	if size%rowBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of rows for %d words", ErrMalformed, size, len(words))
	}
	cols := int(size / rowBytes)
	if cols < 2 {
		return nil, fmt.Errorf("%w: rows of %d values leave no vector after the bias", ErrMalformed, cols)
	}
	store, err := vector.NewStore(cols - 1)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReaderSize(vecs, readBufferSize)
	row := make([]float64, cols)
	values := make([]float32, cols-1)
	for i, w := range words {
		if i%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := binary.Read(br, binary.LittleEndian, row); err != nil {
			return nil, fmt.Errorf("%w: row %d (%q): %v", ErrMalformed, i, w, err)
		}
		for j := range values {
			values[j] = float32(row[j])
		}
		if err := add(store, nil, w, values); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func readVocabulary(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), readBufferSize)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		words = append(words, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return words, nil
}
