package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hyperjump/analogyeval/internal/config"
	"github.com/hyperjump/analogyeval/internal/models"
	"github.com/hyperjump/analogyeval/internal/report"
	"github.com/hyperjump/analogyeval/internal/storage"
)

func runsCmd(g *globalOptions) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, show or delete stored evaluation runs",
	}
	cmd.PersistentFlags().StringVar(&db, "db", "", "run database (default storage.database_path)")

	open := func(cmd *cobra.Command) (storage.Storage, error) {
		cfg, logger, err := g.setup()
		if err != nil {
			return nil, err
		}
		defer logger.Sync()
		return openStorage(cmd, cfg, db)
	}

	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.ListRuns(cmd.Context(), models.ListQuery{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tEMBEDDINGS\tANALOGIES\tCOUNT\tMEASURES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%v\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"),
					r.Embeddings, r.Analogies, r.AnalogyCount, r.Measures)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", models.DefaultListLimit, "page size")
	list.Flags().IntVar(&offset, "offset", 0, "runs to skip")

	var format string
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored run's summary, or re-export it with --format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			rep, err := loadReport(cmd, store, args[0])
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), rep, f)
		},
	}
	show.Flags().StringVar(&format, "format", string(report.FormatText), "output format: text, csv or json")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

// openStorage opens the database named by the --db flag or the config.
func openStorage(cmd *cobra.Command, cfg *config.Config, db string) (*storage.SQLiteStorage, error) {
	if cmd.Flags().Changed("db") {
		cfg.Storage.DatabasePath = db
	}
	if cfg.Storage.DatabasePath == "" {
		return nil, errors.New("no run database given (--db or storage.database_path)")
	}
	return storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
}

// loadReport rebuilds a run's report from storage.
func loadReport(cmd *cobra.Command, store storage.Storage, id string) (*models.RunReport, error) {
	ctx := cmd.Context()
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	results, err := store.GetResults(ctx, id, "")
	if err != nil {
		return nil, err
	}
	centroids, err := store.GetCentroids(ctx, id)
	if err != nil {
		return nil, err
	}
	rep := &models.RunReport{Run: run, Results: results, Centroids: centroids}
	for _, r := range results {
		if r.Ranks != nil {
			rep.Summary = report.Summaries(results)
			break
		}
	}
	return rep, nil
}
