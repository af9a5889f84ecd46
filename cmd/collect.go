package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opendata-madrid/places-cli/internal/catalog"
	"github.com/opendata-madrid/places-cli/internal/collector"
	"github.com/opendata-madrid/places-cli/internal/export"
	"github.com/opendata-madrid/places-cli/pkg/foursquare"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect places for every municipality and category pair",
	Long: `Collect geocodes every municipality in the catalog, searches the
Foursquare Places API around each centre for every category, and writes the
flattened rows to a single output file.

By default all 179 municipalities and all 5 categories are collected
sequentially. Use --municipalities and --categories to narrow the run,
--concurrency to fetch pairs in parallel, and --strict to abandon batches
with malformed rows instead of keeping them in raw shape.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("collect"); err != nil {
			return err
		}

		log := zap.L().With(zap.String("command", "collect"))

		cat, err := loadCatalog(cmd)
		if err != nil {
			return err
		}

		radius, _ := cmd.Flags().GetInt("radius")
		if radius <= 0 {
			radius = cfg.Foursquare.RadiusMeters
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = cfg.Collect.Concurrency
		}
		failFast, _ := cmd.Flags().GetBool("fail-fast")
		strict, _ := cmd.Flags().GetBool("strict")
		skipMisses, _ := cmd.Flags().GetBool("skip-geocode-misses")
		printSummary, _ := cmd.Flags().GetBool("summary")

		policyStr := cfg.Collect.Policy
		if strict {
			policyStr = "strict"
		}
		policy, err := collector.ParsePolicy(policyStr)
		if err != nil {
			return err
		}

		outPath, outFormat, err := resolveOutput(cmd)
		if err != nil {
			return err
		}

		places := foursquare.NewClient(cfg.Foursquare.Token,
			foursquare.WithBaseURL(cfg.Foursquare.BaseURL))

		opts := []collector.Option{
			collector.WithRadius(radius),
			collector.WithPolicy(policy),
			collector.WithConcurrency(concurrency),
			collector.WithLimit(cfg.Foursquare.Limit),
		}
		if failFast || cfg.Collect.FailFast {
			opts = append(opts, collector.WithFailFast())
		}
		if skipMisses || cfg.Collect.SkipGeocodeMisses {
			opts = append(opts, collector.WithSkipMisses())
		}

		var bar *progressbar.ProgressBar
		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar = progressbar.NewOptions(len(cat.Municipalities),
				progressbar.OptionSetDescription("Collecting places"),
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

		coll := collector.New(newGeocoder(), places, opts...)

		log.Info("starting collection",
			zap.Int("municipalities", len(cat.Municipalities)),
			zap.Int("categories", len(cat.Categories)),
			zap.Int("radius_m", radius),
			zap.Int("concurrency", concurrency),
			zap.String("policy", policy.String()),
		)

		started := time.Now()
		coords, resolveErrs, err := coll.Resolve(ctx, cat.Municipalities)
		if err != nil {
			return eris.Wrap(err, "collect: resolve municipalities")
		}

		table, pairErrs, err := coll.CollectAll(ctx, coords, cat.Categories)
		if err != nil {
			return eris.Wrap(err, "collect")
		}
		errs := append(resolveErrs, pairErrs...)

		if err := export.Write(outPath, outFormat, table); err != nil {
			return err
		}

		summary := collector.Summarize(started, table, coords, cat.Categories, errs)
		log.Info("collection complete",
			zap.String("run_id", summary.RunID),
			zap.Int("rows", summary.Rows),
			zap.Int("errors", summary.Errors),
			zap.Duration("elapsed", summary.Elapsed),
			zap.String("output", outPath),
		)
		if len(errs) > 0 {
			log.Warn("run completed with pair errors", zap.Int("count", len(errs)))
		}

		if printSummary {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().String("out", "", "output file path (default output.path, places.csv)")
	collectCmd.Flags().String("format", "", "output format: csv, xlsx, json, geojson, sqlite (default by extension)")
	collectCmd.Flags().Int("radius", 0, "search radius in meters around each municipality centre")
	collectCmd.Flags().String("municipalities", "", "comma-separated municipality slugs (default all)")
	collectCmd.Flags().String("categories", "", "comma-separated category codes or names (default all)")
	collectCmd.Flags().String("catalog", "", "catalog YAML overriding the built-in municipality and category lists")
	collectCmd.Flags().Int("concurrency", 0, "max pair fetches in flight")
	collectCmd.Flags().Bool("fail-fast", false, "abort the run on the first failed municipality/category pair")
	collectCmd.Flags().Bool("strict", false, "abandon a batch when any row is malformed instead of keeping raw rows")
	collectCmd.Flags().Bool("skip-geocode-misses", false, "record unresolvable municipalities and continue")
	collectCmd.Flags().Bool("summary", false, "print run summary JSON to stdout")
	rootCmd.AddCommand(collectCmd)
}

// loadCatalog builds the run catalog: the override file from --catalog or
// catalog.path if set, the built-in defaults otherwise, narrowed by the
// --municipalities and --categories selectors.
func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("catalog")
	if path == "" {
		path = cfg.Catalog.Path
	}

	cat := catalog.Default()
	if path != "" {
		var err error
		cat, err = catalog.LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	muniStr, _ := cmd.Flags().GetString("municipalities")
	catStr, _ := cmd.Flags().GetString("categories")
	codes, err := parseCategorySelectors(cat, catStr)
	if err != nil {
		return nil, err
	}
	return cat.Subset(splitAndTrim(muniStr), codes)
}

// parseCategorySelectors resolves comma-separated category codes or names
// against the catalog.
func parseCategorySelectors(cat *catalog.Catalog, s string) ([]int, error) {
	var codes []int
	for _, tok := range splitAndTrim(s) {
		if code, err := strconv.Atoi(tok); err == nil {
			codes = append(codes, code)
			continue
		}
		found := false
		for _, c := range cat.Categories {
			if c.Name == tok {
				codes = append(codes, c.Code)
				found = true
				break
			}
		}
		if !found {
			return nil, eris.Errorf("unknown category %q", tok)
		}
	}
	return codes, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// resolveOutput decides the output path and format from flags and config.
// An explicit format wins; otherwise the path extension decides.
func resolveOutput(cmd *cobra.Command) (string, export.Format, error) {
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		path = cfg.Output.Path
	}
	formatStr, _ := cmd.Flags().GetString("format")
	if formatStr == "" {
		formatStr = cfg.Output.Format
	}
	if formatStr == "" {
		return path, export.DetectFormat(path), nil
	}
	f, err := export.ParseFormat(formatStr)
	if err != nil {
		return "", "", err
	}
	return path, f, nil
}
