package embedding

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/vector"
)

// ReadText decodes a text table with one "word f1 ... fD" line per entry.
// A leading "V D" header line is skipped. D is taken from the first entry.
func ReadText(ctx context.Context, r io.Reader, logger *zap.Logger) (*vector.Store, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), readBufferSize)

	var store *vector.Store
	var values []float32
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%cancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNo == 1 && len(fields) == 2 && isHeader(fields) {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d has no values", ErrMalformed, lineNo)
		}
		if store == nil {
			s, err := vector.NewStore(len(fields) - 1)
			if err != nil {
				return nil, err
			}
			store = s
			values = make([]float32, store.Dimensions())
		}
		if len(fields)-1 != store.Dimensions() {
			return nil, fmt.Errorf("line %d: %w: expected %d, got %d",
				lineNo, vector.ErrDimensionMismatch, store.Dimensions(), len(fields)-1)
		}
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			values[i] = float32(v)
		}
		if err := add(store, logger, fields[0], values); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: no entries", ErrMalformed)
	}
	return store, nil
}

func isHeader(fields []string) bool {
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}
