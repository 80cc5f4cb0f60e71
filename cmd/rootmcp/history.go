package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	goutils "github.com/jkaninda/go-utils"

	"github.com/rootmcp/rootmcp/internal/config"
	"github.com/rootmcp/rootmcp/internal/storage"
)

var (
	historyConfigPath string
	historyLimit      int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent executions from the history store",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyConfigPath, "config", config.DefaultConfigPath(), "path to config file")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of records to show")
}

func runHistory(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(goutils.Env("ROOTMCP_CONFIG", historyConfigPath))
	if err != nil {
		return err
	}
	if cfg.Storage == nil {
		return fmt.Errorf("execution history is disabled: no storage section in config")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.Open(cfg.Storage, cfg.Execution.WorkingDirectory, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(context.Background()); err != nil {
		return err
	}

	records, err := store.ListExecutions(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no executions recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTOOL\tSTATUS\tDURATION\tCODE\tERROR")
	for _, rec := range records {
		errMsg := rec.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3fs\t%dB\t%s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Tool, rec.Status, rec.DurationSeconds, rec.CodeLength, errMsg)
	}
	return w.Flush()
}
