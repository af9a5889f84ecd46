package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opendata-madrid/places-cli/internal/catalog"
	"github.com/opendata-madrid/places-cli/pkg/foursquare"
	"github.com/opendata-madrid/places-cli/pkg/nominatim"
)

// DefaultRadiusMeters is the search radius around each municipality centre
// when no override is given.
const DefaultRadiusMeters = 2000

// MunicipalityCoord pairs a municipality with its resolved coordinates.
type MunicipalityCoord struct {
	Name string
	Lat  float64
	Lon  float64
}

// PairError records a (municipality, category) unit of work that could not
// contribute clean rows to the final table. Geocoding misses recorded under
// WithSkipMisses use CategoryCode 0, they fail before any category applies.
type PairError struct {
	Municipality string
	CategoryCode int
	Err          error
}

func (e PairError) Error() string {
	return fmt.Sprintf("%s/%d: %v", e.Municipality, e.CategoryCode, e.Err)
}

func (e PairError) Unwrap() error { return e.Err }

// Summary is the accounting for one finished collection run.
type Summary struct {
	RunID          string        `json:"run_id"`
	Municipalities int           `json:"municipalities"`
	Categories     int           `json:"categories"`
	Pairs          int           `json:"pairs"`
	Rows           int           `json:"rows"`
	Errors         int           `json:"errors"`
	Started        time.Time     `json:"started"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Summarize stamps run accounting with a fresh run id.
func Summarize(started time.Time, table Table, coords []MunicipalityCoord, cats []catalog.Category, errs []PairError) Summary {
	return Summary{
		RunID:          uuid.NewString(),
		Municipalities: len(coords),
		Categories:     len(cats),
		Pairs:          len(coords) * len(cats),
		Rows:           len(table),
		Errors:         len(errs),
		Started:        started,
		Elapsed:        time.Since(started),
	}
}

// Option configures a Collector.
type Option func(*Collector)

// WithRadius sets the search radius in meters.
func WithRadius(meters int) Option {
	return func(c *Collector) {
		c.radius = meters
	}
}

// WithPolicy selects the normalization policy.
func WithPolicy(p Policy) Option {
	return func(c *Collector) {
		c.policy = p
	}
}

// WithLimit caps the number of results requested per search. Zero keeps the
// client default.
func WithLimit(n int) Option {
	return func(c *Collector) {
		c.limit = n
	}
}

// WithConcurrency allows up to n pair fetches in flight. The default of 1
// keeps the run fully sequential; output order never depends on n.
func WithConcurrency(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithFailFast aborts the whole run on the first pair that yields no table,
// instead of recording the failure and moving on.
func WithFailFast() Option {
	return func(c *Collector) {
		c.failFast = true
	}
}

// WithSkipMisses records geocoding misses and continues instead of aborting
// resolution.
func WithSkipMisses() Option {
	return func(c *Collector) {
		c.skipMisses = true
	}
}

// WithProgress registers a callback invoked after each completed unit of
// work with (done, total) counts.
func WithProgress(fn func(done, total int)) Option {
	return func(c *Collector) {
		c.progress = fn
	}
}

// Collector drives a full collection run: resolve municipality coordinates,
// search every (municipality, category) pair, and aggregate the results into
// one table.
type Collector struct {
	geo         nominatim.Client
	places      foursquare.Client
	radius      int
	limit       int
	policy      Policy
	concurrency int
	failFast    bool
	skipMisses  bool
	progress    func(done, total int)
}

// New creates a Collector over the two API clients.
func New(geo nominatim.Client, places foursquare.Client, opts ...Option) *Collector {
	c := &Collector{
		geo:         geo,
		places:      places,
		radius:      DefaultRadiusMeters,
		policy:      PolicyLenient,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve geocodes every municipality in catalog order, one lookup at a
// time so the client's limiter paces the whole pass. A miss aborts
// resolution with no partial result unless WithSkipMisses is set, in which
// case the miss lands in the returned PairError list and the pass continues.
func (c *Collector) Resolve(ctx context.Context, munis []catalog.Municipality) ([]MunicipalityCoord, []PairError, error) {
	log := zap.L().With(zap.String("component", "collector"))

	coords := make([]MunicipalityCoord, 0, len(munis))
	var misses []PairError
	for i, m := range munis {
		place, err := c.geo.Lookup(ctx, m.GeocodeQuery())
		if err != nil {
			var miss *nominatim.LookupMissError
			if c.skipMisses && errors.As(err, &miss) {
				log.Warn("municipality not found, skipping",
					zap.String("municipality", m.Slug))
				misses = append(misses, PairError{Municipality: m.Slug, Err: err})
				c.report(i+1, len(munis))
				continue
			}
			return nil, misses, eris.Wrapf(err, "collector: resolve %s", m.Slug)
		}

		log.Debug("municipality resolved",
			zap.String("municipality", m.Slug),
			zap.Float64("lat", place.Lat),
			zap.Float64("lon", place.Lon))
		coords = append(coords, MunicipalityCoord{Name: m.Slug, Lat: place.Lat, Lon: place.Lon})
		c.report(i+1, len(munis))
	}

	return coords, misses, nil
}

// pair is one (municipality, category) unit of work.
type pair struct {
	muni MunicipalityCoord
	cat  catalog.Category
}

// CollectAll fetches and normalizes every (municipality, category) pair and
// concatenates the results municipality-major, category-minor, appending in
// that canonical order regardless of concurrency. Pair failures land in the
// returned PairError slice and the loop keeps going; WithFailFast turns the
// first table-less pair into a terminal error instead. Lenient batches that
// fell back to pre-extraction shape still contribute their rows, with the
// matching PairError saying why.
func (c *Collector) CollectAll(ctx context.Context, coords []MunicipalityCoord, cats []catalog.Category) (Table, []PairError, error) {
	log := zap.L().With(zap.String("component", "collector"))

	pairs := make([]pair, 0, len(coords)*len(cats))
	for _, m := range coords {
		for _, cat := range cats {
			pairs = append(pairs, pair{muni: m, cat: cat})
		}
	}

	results := make([]Table, len(pairs))
	perrs := make([]*PairError, len(pairs))

	if c.concurrency <= 1 {
		for i, p := range pairs {
			if err := ctx.Err(); err != nil {
				return nil, collectErrors(perrs[:i]), eris.Wrap(err, "collector: run canceled")
			}
			rows, perr := c.collectPair(ctx, p)
			if perr != nil && rows == nil && c.failFast {
				return nil, collectErrors(perrs[:i]), eris.Wrap(perr, "collector: run aborted")
			}
			results[i] = rows
			perrs[i] = perr
			c.report(i+1, len(pairs))
		}
	} else {
		eg, gCtx := errgroup.WithContext(ctx)
		eg.SetLimit(c.concurrency)

		var done atomic.Int64
		for i, p := range pairs {
			eg.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				rows, perr := c.collectPair(gCtx, p)
				if perr != nil && rows == nil && c.failFast {
					return perr
				}
				results[i] = rows
				perrs[i] = perr
				c.report(int(done.Add(1)), len(pairs))
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, collectErrors(perrs), eris.Wrap(err, "collector: run aborted")
		}
	}

	table := Concat(results...)
	pairErrs := collectErrors(perrs)

	log.Info("collection finished",
		zap.Int("pairs", len(pairs)),
		zap.Int("rows", len(table)),
		zap.Int("pair_errors", len(pairErrs)))
	return table, pairErrs, nil
}

// collectPair runs one search and normalizes its batch. A nil table means
// the pair produced nothing usable: transport failure or a strict batch
// abort.
func (c *Collector) collectPair(ctx context.Context, p pair) (Table, *PairError) {
	raw, err := c.places.Search(ctx, foursquare.SearchQuery{
		Lat:          p.muni.Lat,
		Lon:          p.muni.Lon,
		RadiusMeters: c.radius,
		CategoryCode: p.cat.Code,
		Limit:        c.limit,
	})
	if err != nil {
		zap.L().Warn("place search failed",
			zap.String("municipality", p.muni.Name),
			zap.Int("category", p.cat.Code),
			zap.Error(err))
		return nil, &PairError{Municipality: p.muni.Name, CategoryCode: p.cat.Code, Err: err}
	}

	rows, batchErr := Normalize(raw, p.muni.Name, c.policy)
	if batchErr != nil {
		zap.L().Warn("batch normalization failed",
			zap.String("municipality", p.muni.Name),
			zap.Int("category", p.cat.Code),
			zap.Int("row", batchErr.RowIndex),
			zap.String("field", batchErr.Field),
			zap.String("policy", c.policy.String()))
		return rows, &PairError{Municipality: p.muni.Name, CategoryCode: p.cat.Code, Err: batchErr}
	}

	return rows, nil
}

// collectErrors flattens slot-indexed errors into canonical pair order.
func collectErrors(perrs []*PairError) []PairError {
	var out []PairError
	for _, pe := range perrs {
		if pe != nil {
			out = append(out, *pe)
		}
	}
	return out
}

func (c *Collector) report(done, total int) {
	if c.progress != nil {
		c.progress(done, total)
	}
}
