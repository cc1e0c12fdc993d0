package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/risk-cli/internal/detect"
	"github.com/sells-group/risk-cli/internal/fetcher"
	"github.com/sells-group/risk-cli/internal/model"
)

var (
	detectInput   string
	detectCNPJCol string
	detectNameCol string
)

var detectCmd = &cobra.Command{
	Use:   "detect [value...]",
	Short: "Classify values as CNPJs or company names and recommend a strategy",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("detect"); err != nil {
			return err
		}

		items := model.StringItems(args)
		if detectInput != "" {
			loaded, err := fetcher.LoadItems(detectInput)
			if err != nil {
				return err
			}
			items = append(items, loaded...)
		}
		if len(items) == 0 {
			return eris.New("pass values as arguments or a file with --input")
		}

		mapping := model.ColumnMapping{TaxIDColumn: detectCNPJCol, NameColumn: detectNameCol}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detect.SummarizeItems(items, mapping))
	},
}

func init() {
	detectCmd.Flags().StringVarP(&detectInput, "input", "i", "", "txt, csv, xlsx or json file to classify")
	detectCmd.Flags().StringVar(&detectCNPJCol, "cnpj-col", "", "record field holding the CNPJ")
	detectCmd.Flags().StringVar(&detectNameCol, "name-col", "", "record field holding the company name")
	rootCmd.AddCommand(detectCmd)
}
