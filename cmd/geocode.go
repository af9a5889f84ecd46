package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opendata-madrid/places-cli/internal/collector"
	"github.com/opendata-madrid/places-cli/internal/export"
	"github.com/opendata-madrid/places-cli/pkg/nominatim"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Resolve municipality coordinates without searching places",
	Long: `Geocode resolves every municipality in the catalog through Nominatim
and writes the coordinate table (municipio, latitud, longitud) without
touching the Foursquare API. Useful for checking catalog queries before a
full collection run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "geocode"))

		cat, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		var opts []collector.Option
		skipMisses, _ := cmd.Flags().GetBool("skip-misses")
		if skipMisses || cfg.Collect.SkipGeocodeMisses {
			opts = append(opts, collector.WithSkipMisses())
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(cat.Municipalities),
				progressbar.OptionSetDescription("Geocoding municipalities"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		opts = append(opts, collector.WithProgress(func(done, total int) {
			if bar == nil {
				return
			}
			bar.ChangeMax(total)
			_ = bar.Set(done)
		}))

		coll := collector.New(newGeocoder(), nil, opts...)

		coords, misses, err := coll.Resolve(ctx, cat.Municipalities)
		if err != nil {
			return eris.Wrap(err, "geocode")
		}

		table := make(collector.Table, 0, len(coords))
		for _, co := range coords {
			table = append(table, collector.Row{
				"municipio": co.Name,
				"latitud":   co.Lat,
				"longitud":  co.Lon,
			})
		}

		outPath, outFormat, err := resolveOutput(cmd)
		if err != nil {
			return err
		}
		if err := export.Write(outPath, outFormat, table); err != nil {
			return err
		}

		log.Info("geocoding complete",
			zap.Int("resolved", len(coords)),
			zap.Int("misses", len(misses)),
			zap.String("output", outPath),
		)
		return nil
	},
}

func init() {
	geocodeCmd.Flags().String("out", "", "output file path (default output.path, places.csv)")
	geocodeCmd.Flags().String("format", "", "output format: csv, xlsx, json, geojson, sqlite (default by extension)")
	geocodeCmd.Flags().String("municipalities", "", "comma-separated municipality slugs (default all)")
	geocodeCmd.Flags().String("catalog", "", "catalog YAML overriding the built-in municipality list")
	geocodeCmd.Flags().Bool("skip-misses", false, "record unresolvable municipalities and continue")
	rootCmd.AddCommand(geocodeCmd)
}

// newGeocoder builds the Nominatim client from config.
func newGeocoder() nominatim.Client {
	return nominatim.NewClient(
		nominatim.WithBaseURL(cfg.Nominatim.BaseURL),
		nominatim.WithUserAgent(cfg.Nominatim.UserAgent),
		nominatim.WithRateLimit(cfg.Nominatim.RatePerSec),
	)
}
