package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/embedding"
	"github.com/hyperjump/analogyeval/internal/vector"
)

func convertCmd(g *globalOptions) *cobra.Command {
	var (
		embeddings, format, vocab, out, to string
		topK                               int
		normalize                          bool
	)
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an embedding table to a snapshot or binary word2vec",
		Long: `Reads any supported embedding table and writes it as a snapshot (fast to
reload) or as binary word2vec. --top-k keeps only the most frequent words.

Example:
  analogyeval convert --embeddings glove.bin --vocab vocab.txt --top-k 30000 --out glove30k.snap`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if embeddings == "" || out == "" {
				return errors.New("--embeddings and --out are required")
			}
			store, err := embedding.Load(cmd.Context(), embedding.Options{
				Path:      embeddings,
				VocabPath: vocab,
				Format:    embedding.Format(format),
				Normalize: normalize,
				TopK:      topK,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			if to == "" {
				to = string(embedding.FormatSnapshot)
				if filepath.Ext(out) == ".bin" {
					to = string(embedding.FormatWord2Vec)
				}
			}
			if err := writeStore(store, out, embedding.Format(to)); err != nil {
				return err
			}
			logger.Info("embeddings converted", zap.String("out", out), zap.String("format", to), zap.Int("words", store.Size()))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d x %d vectors to %s\n", store.Size(), store.Dimensions(), out)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&embeddings, "embeddings", "", "input embedding table")
	fl.StringVar(&format, "format", "", "input format (detected when empty)")
	fl.StringVar(&vocab, "vocab", "", "GloVe vocabulary file")
	fl.StringVar(&out, "out", "", "output path")
	fl.StringVar(&to, "to", "", "output format: snapshot or word2vec (default from the extension)")
	fl.IntVar(&topK, "top-k", 0, "keep only the K most frequent words (0 keeps all)")
	fl.BoolVar(&normalize, "normalize", false, "scale vectors to unit length before writing")
	return cmd
}

func writeStore(store *vector.Store, path string, format embedding.Format) error {
	switch format {
	case embedding.FormatSnapshot:
		return store.Save(path)
	case embedding.FormatWord2Vec:
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := embedding.WriteWord2Vec(f, store); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	default:
		return fmt.Errorf("%w: cannot write %q", embedding.ErrUnknownFormat, format)
	}
}
