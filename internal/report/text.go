package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/pkg/utils"
)

const maxCategoryWidth = 40

func writeText(w io.Writer, rep *models.RunReport) error {
	run := rep.Run
	fmt.Fprintf(w, "\nRun %s (%s)\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Embeddings: %s [%s] %d words x %d dims\n", run.Embeddings, run.Format, run.VocabularySize, run.Dimensions)
	fmt.Fprintf(w, "Analogies:  %s (%d evaluated, %d workers, %dms)\n\n", run.Analogies, run.AnalogyCount, run.Workers, run.DurationMS)

	if len(rep.Summary) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "category\tcount\tmethod\tmean\tmedian\tmrr\t@1\t@10\t")
		for _, s := range rep.Summary {
			name := utils.Truncate(s.Category, maxCategoryWidth)
			if len(s.Methods) == 0 {
				fmt.Fprintf(tw, "%s\t%d\t-\t\t\t\t\t\t\n", name, s.Count)
				continue
			}
			for _, m := range s.Methods {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f\t%.1f\t%.4f\t%.4f\t%.4f\t\n",
					name, s.Count, m.Method, m.MeanRank, m.MedianRank, m.MRR, m.HitsAt1, m.HitsAt10)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "%d analogies scored (ranks not requested)\n", len(rep.Results))
	}

	for _, c := range rep.Centroids {
		if c.Empty {
			fmt.Fprintf(w, "\ncategory %q has no pairs with vectors; centroid undefined\n", c.Category)
		}
	}
	return nil
}
