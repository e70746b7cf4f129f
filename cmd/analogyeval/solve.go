package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/embedding"
	"github.com/hyperjump/analogyeval/internal/parallel"
	"github.com/hyperjump/analogyeval/internal/ranking"
	"github.com/hyperjump/analogyeval/internal/suggest"
)

func solveCmd(g *globalOptions) *cobra.Command {
	var (
		embeddings, format, vocab string
		k, workers, topK          int
		caseSensitive, asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "solve <w1> <w2> <w3>",
		Short: "Print the best answers to \"w1 is to w2 as w3 is to ?\"",
		Long: `Scores every vocabulary word as the missing fourth term under the
baseline, additive and multiplicative methods and prints the k best per method.
The three query words are never answers.

Example:
  analogyeval solve --embeddings GoogleNews.bin --k 5 man woman king`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			changed := cmd.Flags().Changed
			if changed("embeddings") {
				cfg.Embeddings.Path = embeddings
			}
			if changed("format") {
				cfg.Embeddings.Format = format
			}
			if changed("vocab") {
				cfg.Embeddings.VocabPath = vocab
			}
			if changed("top-k") {
				cfg.Embeddings.TopK = topK
			}
			if changed("workers") {
				cfg.Evaluation.Workers = workers
			}
			if cfg.Embeddings.Path == "" {
				return errors.New("no embeddings given (--embeddings or embeddings.path)")
			}
			if cfg.Evaluation.Workers < 1 {
				return fmt.Errorf("workers must be at least 1, got %d", cfg.Evaluation.Workers)
			}
			if !caseSensitive && !cfg.Analogies.CaseSensitive {
				for i := range args {
					args[i] = strings.ToLower(args[i])
				}
			}

			store, err := embedding.Load(cmd.Context(), embedding.Options{
				Path:      cfg.Embeddings.Path,
				VocabPath: cfg.Embeddings.VocabPath,
				Format:    embedding.Format(cfg.Embeddings.Format),
				Normalize: cfg.Embeddings.NormalizeOrDefault(),
				TopK:      cfg.Embeddings.TopK,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			for _, w := range args {
				if !store.Contains(w) {
					hint := suggest.Hint(suggest.New(store).Suggest(w))
					return fmt.Errorf("%w: %q%s", ranking.ErrUnknownTerm, w, hint)
				}
			}
			ev := ranking.NewEvaluator(store, parallel.New(cfg.Evaluation.Workers),
				ranking.WithLogger(logger), ranking.WithConfig(cfg.Evaluation.Ranking()))
			answers, err := ev.Solve(cmd.Context(), args[0], args[1], args[2], k)
			if err != nil {
				return err
			}
			logger.Debug("analogy solved", zap.Strings("terms", args), zap.Int("k", k))

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(answers)
			}
			fmt.Fprintf(out, "%s : %s :: %s : ?\n\n", args[0], args[1], args[2])
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tMETHOD\tWORD\tSCORE")
			for _, m := range ranking.Methods {
				for i, n := range answers.Get(m) {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\n", i+1, m, n.Key, n.Score)
				}
			}
			return tw.Flush()
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&embeddings, "embeddings", "", "embedding table path")
	fl.StringVar(&format, "format", "", "embedding format (detected when empty)")
	fl.StringVar(&vocab, "vocab", "", "GloVe vocabulary file")
	fl.IntVar(&topK, "top-k", 0, "keep only the K most frequent words (0 keeps all)")
	fl.IntVar(&k, "k", 10, "answers per method")
	fl.IntVar(&workers, "workers", 0, "number of parallel workers (default evaluation.workers)")
	fl.BoolVar(&caseSensitive, "case-sensitive", false, "keep the query words as written instead of lower-casing")
	fl.BoolVar(&asJSON, "json", false, "print the answers as JSON")
	return cmd
}
