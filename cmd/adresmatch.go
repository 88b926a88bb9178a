package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rwidev/MatchAddressFlanders/internal/enrich"
	"github.com/rwidev/MatchAddressFlanders/internal/record"
	"github.com/rwidev/MatchAddressFlanders/pkg/basisregisters"
)

var (
	adresmatchOutput  string
	adresmatchForce   bool
	adresmatchMaxRows int
	adresmatchDelay   float64
)

var adresmatchCmd = &cobra.Command{
	Use:   "adresmatch <csv>",
	Short: "Augment a CSV with Adressenregister adresmatch results",
	Long: `Reads a CSV of address fragments, queries the adresmatch endpoint for each
row and writes the flattened best match into adresmatch_* columns. The input
file is updated in place unless --output is set. Rows that already carry an
adresmatch_status are skipped unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		csvPath := args[0]

		file, err := record.Load(csvPath)
		if err != nil {
			return err
		}
		file.EnsureColumns(record.AdresmatchColumns)

		client := basisregisters.NewClient(
			basisregisters.WithAdresmatchURL(cfg.Adresmatch.URL),
			basisregisters.WithBearerToken(cfg.Adresmatch.AuthToken),
			basisregisters.WithTimeout(cfg.Adresmatch.Timeout()),
			basisregisters.WithRateLimit(cfg.Adresmatch.RateLimit),
		)

		pipe := enrich.NewAdresmatch(client, enrich.AdresmatchOptions{
			Force:   adresmatchForce,
			MaxRows: adresmatchMaxRows,
			Delay:   time.Duration(adresmatchDelay * float64(time.Second)),
		})
		if err := pipe.Run(ctx, file.Rows); err != nil {
			return err
		}

		outPath := adresmatchOutput
		if outPath == "" {
			outPath = csvPath
		}
		if err := file.Save(outPath); err != nil {
			return err
		}

		zap.L().Info("updated file saved",
			zap.Int("rows", len(file.Rows)),
			zap.String("path", outPath),
		)
		return nil
	},
}

func init() {
	adresmatchCmd.Flags().StringVar(&adresmatchOutput, "output", "", "path for the enriched CSV (default: overwrite the input file)")
	adresmatchCmd.Flags().BoolVar(&adresmatchForce, "force", false, "re-query rows that already contain adresmatch_status values")
	adresmatchCmd.Flags().IntVar(&adresmatchMaxRows, "max-rows", -1, "limit how many rows are processed (-1 = all)")
	adresmatchCmd.Flags().Float64Var(&adresmatchDelay, "delay", 0, "extra sleep in seconds between calls, after the rate limiter")
	rootCmd.AddCommand(adresmatchCmd)
}
