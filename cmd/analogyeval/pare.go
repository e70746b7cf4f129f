package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/config"
	"github.com/hyperjump/analogyeval/internal/embedding"
	"github.com/hyperjump/analogyeval/internal/pare"
)

type pareFlags struct {
	in, out    string
	embeddings string
	format     string
	vocab      string
	lexicon    string
	relation   string
	windows    map[string]*float64
	entropy    map[string]*float64
}

// windowFlags maps flag names to the criteria bound they set.
var windowFlags = []struct {
	name, usage string
	bound       func(c *pare.Criteria) *float64
}{
	{"min12", "minimum cos(w1, w2)", func(c *pare.Criteria) *float64 { return &c.Sim12.Min }},
	{"max12", "maximum cos(w1, w2)", func(c *pare.Criteria) *float64 { return &c.Sim12.Max }},
	{"min24", "minimum cos(w2, w4)", func(c *pare.Criteria) *float64 { return &c.Sim24.Min }},
	{"max24", "maximum cos(w2, w4)", func(c *pare.Criteria) *float64 { return &c.Sim24.Max }},
	{"min34", "minimum cos(w3, w4)", func(c *pare.Criteria) *float64 { return &c.Sim34.Min }},
	{"max34", "maximum cos(w3, w4)", func(c *pare.Criteria) *float64 { return &c.Sim34.Max }},
	{"min-rel1", "minimum probability that (w1, w2) hold the relation", func(c *pare.Criteria) *float64 { return &c.FirstRelation.Min }},
	{"max-rel1", "maximum probability that (w1, w2) hold the relation", func(c *pare.Criteria) *float64 { return &c.FirstRelation.Max }},
	{"min-rel2", "minimum probability that (w3, w4) hold the relation", func(c *pare.Criteria) *float64 { return &c.SecondRelation.Min }},
	{"max-rel2", "maximum probability that (w3, w4) hold the relation", func(c *pare.Criteria) *float64 { return &c.SecondRelation.Max }},
}

var entropyFlags = []struct {
	name, usage string
	bound       func(c *pare.Criteria) **float64
}{
	{"any-entropy-min", "minimum lemma entropy of every term", func(c *pare.Criteria) **float64 { return &c.AnyEntropyMin }},
	{"any-entropy-max", "maximum lemma entropy of every term", func(c *pare.Criteria) **float64 { return &c.AnyEntropyMax }},
	{"entropy-min", "minimum summed entropy of the four terms", func(c *pare.Criteria) **float64 { return &c.EntropyMin }},
	{"entropy-max", "maximum summed entropy of the four terms", func(c *pare.Criteria) **float64 { return &c.EntropyMax }},
}

func pareCmd(g *globalOptions) *cobra.Command {
	f := &pareFlags{windows: map[string]*float64{}, entropy: map[string]*float64{}}
	cmd := &cobra.Command{
		Use:   "pare",
		Short: "Filter an analogy file by similarity, relation and entropy criteria",
		Long: `Copies the analogies that meet every criterion (and every category line)
from --in to --out. Similarity windows need --embeddings; relation and entropy
bounds need --lexicon, a TSV of "rel<TAB>a<TAB>b<TAB>p" and "entropy<TAB>w<TAB>e" rows.

Example:
  analogyeval pare --in questions-words.txt --out pared.txt --embeddings vectors.bin --min24 0.3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if f.in == "" || f.out == "" {
				return errors.New("--in and --out are required")
			}
			criteria := applyPareFlags(cmd, f, cfg)

			opts := []pare.Option{
				pare.WithLogger(logger),
				pare.WithMarker(cfg.Analogies.CategoryMarker),
				pare.WithProgressEvery(cfg.Pare.ProgressEvery),
			}
			if cfg.Embeddings.Path != "" {
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
				opts = append(opts, pare.WithStore(store))
			}
			if cfg.Pare.LexiconPath != "" {
				lexicon, err := pare.LoadLexicalTable(cfg.Pare.LexiconPath)
				if err != nil {
					return err
				}
				opts = append(opts, pare.WithLexicon(lexicon))
			}

			filter, err := pare.NewFilter(criteria, opts...)
			if err != nil {
				return err
			}
			stats, err := filter.PareFile(cmd.Context(), f.in, f.out)
			if err != nil {
				return err
			}
			logger.Info("analogies pared",
				zap.String("out", f.out),
				zap.Int("read", stats.Read),
				zap.Int("kept", stats.Kept),
				zap.Int("malformed", stats.Malformed),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "kept %d of %d analogies\n", stats.Kept, stats.Read)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.in, "in", "", "input analogy file")
	fl.StringVar(&f.out, "out", "", "output analogy file")
	fl.StringVar(&f.embeddings, "embeddings", "", "embedding table for the similarity windows")
	fl.StringVar(&f.format, "format", "", "embedding format (detected when empty)")
	fl.StringVar(&f.vocab, "vocab", "", "GloVe vocabulary file")
	fl.StringVar(&f.lexicon, "lexicon", "", "lexical table for the relation and entropy bounds")
	fl.StringVar(&f.relation, "rel", "", "relation tag or alias (hyper, inst_hyper, memb_holo, part_holo, anto)")
	for _, w := range windowFlags {
		f.windows[w.name] = fl.Float64(w.name, 0, w.usage)
	}
	for _, e := range entropyFlags {
		f.entropy[e.name] = fl.Float64(e.name, 0, e.usage)
	}
	return cmd
}

// applyPareFlags merges explicitly set flags into cfg and returns the criteria to apply.
func applyPareFlags(cmd *cobra.Command, f *pareFlags, cfg *config.Config) pare.Criteria {
	changed := cmd.Flags().Changed
	if changed("embeddings") {
		cfg.Embeddings.Path = f.embeddings
	}
	if changed("format") {
		cfg.Embeddings.Format = f.format
	}
	if changed("vocab") {
		cfg.Embeddings.VocabPath = f.vocab
	}
	if changed("lexicon") {
		cfg.Pare.LexiconPath = f.lexicon
	}
	c := cfg.Pare.Criteria
	if changed("rel") {
		c.Relation = f.relation
	}
	for _, w := range windowFlags {
		if changed(w.name) {
			*w.bound(&c) = *f.windows[w.name]
		}
	}
	for _, e := range entropyFlags {
		if changed(e.name) {
			v := *f.entropy[e.name]
			*e.bound(&c) = &v
		}
	}
	cfg.Pare.Criteria = c
	return c
}
