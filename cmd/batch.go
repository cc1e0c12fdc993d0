package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/risk-cli/internal/fetcher"
	"github.com/sells-group/risk-cli/internal/pipeline"
)

var batchFlagSet batchFlags

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Score every CNPJ or company name in a txt, csv, xlsx or json file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if _, err := pipeline.ParseFormat(batchFlagSet.format); err != nil {
			return err
		}
		opts, err := batchFlagSet.params(cmd).options(cfg.Batch)
		if err != nil {
			return err
		}

		items, err := fetcher.LoadItems(args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return eris.Errorf("no items found in %s", args[0])
		}

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		report := env.Pipeline.Run(ctx, items, opts)
		logReport(report)
		return writeOutput(report, batchFlagSet.output, batchFlagSet.format, cmd.OutOrStdout())
	},
}

func init() {
	batchFlagSet.register(batchCmd)
	rootCmd.AddCommand(batchCmd)
}
