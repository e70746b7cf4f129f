// Package embedding loads precomputed word vector tables into a vector.Store.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/vector"
)

// Format names an on-disk embedding table layout.
type Format string

const (
	// FormatWord2Vec is the binary word2vec layout.
	FormatWord2Vec Format = "word2vec"
	// FormatText is one "word f1 ... fD" line per entry, optionally after a "V D" header.
	FormatText Format = "text"
	// FormatGloVe is a "word count" vocabulary file plus a binary float64 table.
	FormatGloVe Format = "glove"
	// FormatSnapshot is the store's own binary dump.
	FormatSnapshot Format = "snapshot"
)

// SnapshotExt is the file extension used for snapshots.
const SnapshotExt = ".snap"

var (
	// ErrUnknownFormat is returned for an unsupported Format.
	ErrUnknownFormat = errors.New("unknown embedding format")
	// ErrMalformed is returned when a table cannot be decoded.
	ErrMalformed = errors.New("malformed embedding file")
)

const (
	readBufferSize = 1 << 20
	cancelEvery    = 10000
)

// Options selects and post-processes an embedding table.
type Options struct {
	Path string
	// VocabPath is the GloVe vocabulary file; required for FormatGloVe.
	VocabPath string
	// Format is detected from the file names when empty.
	Format Format
	// Normalize scales every vector to unit length after loading.
	Normalize bool
	// TopK keeps only the first K entries of the lexicon; 0 keeps all.
	TopK   int
	Logger *zap.Logger
}

// DetectFormat guesses a format from the paths.
func DetectFormat(path, vocabPath string) Format {
	if vocabPath != "" {
		return FormatGloVe
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case SnapshotExt:
		return FormatSnapshot
	case ".txt", ".vec":
		return FormatText
	default:
		return FormatWord2Vec
	}
}

// Load reads the table described by opts, then normalizes and truncates it.
// Lexicon order is file order.
func Load(ctx context.Context, opts Options) (*vector.Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	format := opts.Format
	if format == "" {
		format = DetectFormat(opts.Path, opts.VocabPath)
	}

	start := time.Now()
	store, err := read(ctx, format, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s embeddings %s: %w", format, opts.Path, err)
	}
	loaded := store.Size()

	if opts.Normalize {
		store.NormalizeAll()
	}
	if opts.TopK > 0 && opts.TopK < store.Size() {
		store.Truncate(opts.TopK)
	}

	logger.Info("embeddings loaded",
		zap.String("path", opts.Path),
		zap.String("format", string(format)),
		zap.Int("read", loaded),
		zap.Int("kept", store.Size()),
		zap.Int("dimensions", store.Dimensions()),
		zap.Bool("normalized", opts.Normalize),
		zap.Duration("took", time.Since(start)),
	)
	return store, nil
}

func read(ctx context.Context, format Format, opts Options) (*vector.Store, error) {
	switch format {
	case FormatSnapshot:
		return vector.LoadStore(opts.Path)
	case FormatWord2Vec, FormatText:
		f, err := os.Open(opts.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if format == FormatText {
			return ReadText(ctx, f, opts.Logger)
		}
		return ReadWord2Vec(ctx, f, opts.Logger)
	case FormatGloVe:
		if opts.VocabPath == "" {
			return nil, fmt.Errorf("%w: glove format needs a vocabulary file", ErrMalformed)
		}
		vocab, err := os.Open(opts.VocabPath)
		if err != nil {
			return nil, err
		}
		defer vocab.Close()
		vecs, err := os.Open(opts.Path)
		if err != nil {
			return nil, err
		}
		defer vecs.Close()
		info, err := vecs.Stat()
		if err != nil {
			return nil, err
		}
		return ReadGloVe(ctx, vocab, vecs, info.Size())
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// add inserts an entry, logging when a repeated key is ignored.
func add(store *vector.Store, logger *zap.Logger, key string, values []float32) error {
	added, err := store.Add(key, values)
	if err != nil {
		return err
	}
	if !added && logger != nil {
		logger.Debug("duplicate embedding key ignored", zap.String("key", key))
	}
	return nil
}
