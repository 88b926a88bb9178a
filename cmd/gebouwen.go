package main

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rwidev/MatchAddressFlanders/internal/enrich"
	"github.com/rwidev/MatchAddressFlanders/internal/record"
	"github.com/rwidev/MatchAddressFlanders/internal/resilience"
	"github.com/rwidev/MatchAddressFlanders/pkg/basisregisters"
)

var (
	gebouwenOutput          string
	gebouwenForce           bool
	gebouwenMaxRows         int
	gebouwenDelay           float64
	gebouwenUnitLimit       int
	gebouwenIncludeHistoric bool
	gebouwenAdresIDField    string
)

var gebouwenCmd = &cobra.Command{
	Use:   "gebouwen <csv>",
	Short: "Augment an adresmatch-enriched CSV with building footprints",
	Long: `For each row carrying a matched address id, chains gebouweenheden and
gebouwen lookups to resolve the building footprint as WKT into
gebouwregister_* columns. Output defaults to <input>_gebouwen.csv. Rows that
already carry a gebouwregister_status are skipped unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		csvPath := args[0]

		file, err := record.Load(csvPath)
		if err != nil {
			return err
		}
		file.EnsureColumns(record.GebouwColumns)

		client := basisregisters.NewClient(
			basisregisters.WithGebouwenURL(cfg.Gebouwen.GebouwenURL),
			basisregisters.WithGebouweenhedenURL(cfg.Gebouwen.GebouweenhedenURL),
			basisregisters.WithAuthorization(cfg.Gebouwen.Auth),
			basisregisters.WithTimeout(cfg.Gebouwen.Timeout()),
			basisregisters.WithRateLimit(cfg.Gebouwen.RateLimit),
			basisregisters.WithRetry(resilience.Config{
				Retries: cfg.Gebouwen.Retries,
				Wait:    cfg.Gebouwen.RetryWait(),
				OnRetry: resilience.RetryLogger("gebouwenregister", "get"),
			}),
		)

		pipe := enrich.NewGebouwen(client, enrich.GebouwenOptions{
			AdresIDColumn:   gebouwenAdresIDField,
			UnitLimit:       gebouwenUnitLimit,
			IncludeHistoric: gebouwenIncludeHistoric,
			Force:           gebouwenForce,
			MaxRows:         gebouwenMaxRows,
			Delay:           time.Duration(gebouwenDelay * float64(time.Second)),
		})
		if err := pipe.Run(ctx, file.Rows); err != nil {
			return err
		}

		outPath := gebouwenOutput
		if outPath == "" {
			outPath = defaultGebouwenOutput(csvPath)
		}
		if err := file.Save(outPath); err != nil {
			return err
		}

		zap.L().Info("output written",
			zap.Int("rows", len(file.Rows)),
			zap.String("path", outPath),
		)
		return nil
	},
}

// defaultGebouwenOutput derives <base>_gebouwen<ext> from the input path.
func defaultGebouwenOutput(csvPath string) string {
	ext := filepath.Ext(csvPath)
	base := strings.TrimSuffix(csvPath, ext)
	if ext == "" {
		ext = ".csv"
	}
	return base + "_gebouwen" + ext
}

func init() {
	gebouwenCmd.Flags().StringVar(&gebouwenOutput, "output", "", "path for the CSV with gebouwregister matches (default: <input>_gebouwen.csv)")
	gebouwenCmd.Flags().BoolVar(&gebouwenForce, "force", false, "re-query rows that already contain gebouwregister_status values")
	gebouwenCmd.Flags().IntVar(&gebouwenMaxRows, "max-rows", -1, "limit how many rows are processed (-1 = all)")
	gebouwenCmd.Flags().Float64Var(&gebouwenDelay, "delay", 0, "extra sleep in seconds after each processed row")
	gebouwenCmd.Flags().IntVar(&gebouwenUnitLimit, "limit", 5, "maximum number of gebouweenheden to request per adres")
	gebouwenCmd.Flags().BoolVar(&gebouwenIncludeHistoric, "include-historic", false, "allow gehistoreerde gebouweenheden")
	gebouwenCmd.Flags().StringVar(&gebouwenAdresIDField, "adres-id-field", record.ColMatchAdresID, "column containing the adres id from adresmatch")
	rootCmd.AddCommand(gebouwenCmd)
}
