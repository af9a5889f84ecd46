package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opendata-madrid/places-cli/internal/catalog"
	"github.com/opendata-madrid/places-cli/internal/collector"
	"github.com/opendata-madrid/places-cli/internal/export"
	"github.com/opendata-madrid/places-cli/pkg/foursquare"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search one municipality and category pair",
	Long: `Search runs a single Foursquare query for one municipality and one
category and prints the normalized rows as JSON. Pass --lat and --lon to skip
geocoding. Meant for debugging catalog entries and category codes before a
full run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("search"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "search"))

		cat := catalog.Default()
		if cfg.Catalog.Path != "" {
			var err error
			cat, err = catalog.LoadFile(cfg.Catalog.Path)
			if err != nil {
				return err
			}
		}

		muni, _ := cmd.Flags().GetString("municipality")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		categoryStr, _ := cmd.Flags().GetString("category")
		radius, _ := cmd.Flags().GetInt("radius")
		outPath, _ := cmd.Flags().GetString("out")

		if radius <= 0 {
			radius = cfg.Foursquare.RadiusMeters
		}

		codes, err := parseCategorySelectors(cat, categoryStr)
		if err != nil {
			return err
		}
		if len(codes) != 1 {
			return eris.New("search: exactly one --category is required")
		}
		category, ok := cat.CategoryByCode(codes[0])
		if !ok {
			category = catalog.Category{Code: codes[0], Name: strconv.Itoa(codes[0])}
		}

		var coord collector.MunicipalityCoord
		switch {
		case lat != 0 || lon != 0:
			name := muni
			if name == "" {
				name = "ad-hoc"
			}
			coord = collector.MunicipalityCoord{Name: name, Lat: lat, Lon: lon}
		case muni != "":
			query := muni
			for _, m := range cat.Municipalities {
				if m.Slug == muni {
					query = m.GeocodeQuery()
					break
				}
			}
			place, err := newGeocoder().Lookup(ctx, query)
			if err != nil {
				return eris.Wrapf(err, "search: resolve %s", muni)
			}
			coord = collector.MunicipalityCoord{Name: muni, Lat: place.Lat, Lon: place.Lon}
		default:
			return eris.New("search: --municipality or --lat/--lon is required")
		}

		places := foursquare.NewClient(cfg.Foursquare.Token,
			foursquare.WithBaseURL(cfg.Foursquare.BaseURL))

		raw, err := places.Search(ctx, foursquare.SearchQuery{
			Lat:          coord.Lat,
			Lon:          coord.Lon,
			RadiusMeters: radius,
			CategoryCode: category.Code,
			Limit:        cfg.Foursquare.Limit,
		})
		if err != nil {
			return eris.Wrap(err, "search")
		}

		policy, err := collector.ParsePolicy(cfg.Collect.Policy)
		if err != nil {
			return err
		}
		rows, batchErr := collector.Normalize(raw, coord.Name, policy)
		if batchErr != nil {
			log.Warn("batch normalization failed",
				zap.Int("row", batchErr.RowIndex),
				zap.String("field", batchErr.Field),
			)
			if rows == nil {
				return batchErr
			}
		}

		log.Info("search complete",
			zap.String("municipality", coord.Name),
			zap.Int("category", category.Code),
			zap.Int("rows", len(rows)),
		)

		if outPath == "" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		}
		return export.Write(outPath, export.DetectFormat(outPath), rows)
	},
}

func init() {
	searchCmd.Flags().String("municipality", "", "municipality slug or free-form geocoding query")
	searchCmd.Flags().Float64("lat", 0, "latitude, skips geocoding when set with --lon")
	searchCmd.Flags().Float64("lon", 0, "longitude, skips geocoding when set with --lat")
	searchCmd.Flags().String("category", "", "category code or name (required)")
	searchCmd.Flags().Int("radius", 0, "search radius in meters")
	searchCmd.Flags().String("out", "", "output file path (default stdout JSON)")
	_ = searchCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(searchCmd)
}
