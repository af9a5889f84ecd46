package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendata-madrid/places-cli/internal/catalog"
	"github.com/opendata-madrid/places-cli/pkg/foursquare"
	"github.com/opendata-madrid/places-cli/pkg/nominatim"
)

type fakeGeocoder struct {
	lookups []string
	places  map[string]*nominatim.Place
	errs    map[string]error
}

func (f *fakeGeocoder) Lookup(_ context.Context, q string) (*nominatim.Place, error) {
	f.lookups = append(f.lookups, q)
	if err, ok := f.errs[q]; ok {
		return nil, err
	}
	if p, ok := f.places[q]; ok {
		return p, nil
	}
	return nil, &nominatim.LookupMissError{Query: q}
}

type fakeSearcher struct {
	mu      sync.Mutex
	queries []foursquare.SearchQuery
	respond func(q foursquare.SearchQuery) ([]map[string]any, error)
}

func (f *fakeSearcher) Search(_ context.Context, q foursquare.SearchQuery) ([]map[string]any, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(q)
	}
	return []map[string]any{}, nil
}

func munis(slugs ...string) []catalog.Municipality {
	out := make([]catalog.Municipality, len(slugs))
	for i, s := range slugs {
		out[i] = catalog.Municipality{Slug: s}
	}
	return out
}

func cats(codes ...int) []catalog.Category {
	out := make([]catalog.Category, len(codes))
	for i, c := range codes {
		out[i] = catalog.Category{Code: c, Name: fmt.Sprintf("cat-%d", c)}
	}
	return out
}

// oneRowPerPair answers every search with a single well-formed row tagged by
// the query so ordering is observable in the output table.
func oneRowPerPair(q foursquare.SearchQuery) ([]map[string]any, error) {
	return []map[string]any{
		placeRow(map[string]any{
			"fsq_id": fmt.Sprintf("%v/%d", q.Lat, q.CategoryCode),
		}),
	}, nil
}

func TestResolve_Order(t *testing.T) {
	geo := &fakeGeocoder{places: map[string]*nominatim.Place{
		"getafe":  {Lat: 40.308, Lon: -3.732},
		"leganes": {Lat: 40.327, Lon: -3.763},
		"parla":   {Lat: 40.237, Lon: -3.773},
	}}

	var progress []int
	c := New(geo, &fakeSearcher{}, WithProgress(func(done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	}))

	coords, misses, err := c.Resolve(context.Background(), munis("getafe", "leganes", "parla"))

	require.NoError(t, err)
	assert.Empty(t, misses)
	require.Len(t, coords, 3)
	assert.Equal(t, []string{"getafe", "leganes", "parla"}, geo.lookups)
	assert.Equal(t, MunicipalityCoord{Name: "getafe", Lat: 40.308, Lon: -3.732}, coords[0])
	assert.Equal(t, "parla", coords[2].Name)
	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestResolve_UsesGeocodeQuery(t *testing.T) {
	geo := &fakeGeocoder{places: map[string]*nominatim.Place{
		"Getafe, Madrid, Spain": {Lat: 40.308, Lon: -3.732},
	}}
	c := New(geo, &fakeSearcher{})

	coords, _, err := c.Resolve(context.Background(), []catalog.Municipality{
		{Slug: "getafe", Query: "Getafe, Madrid, Spain"},
	})

	require.NoError(t, err)
	require.Len(t, coords, 1)
	// The coordinate keeps the slug, not the query.
	assert.Equal(t, "getafe", coords[0].Name)
}

func TestResolve_MissAborts(t *testing.T) {
	geo := &fakeGeocoder{places: map[string]*nominatim.Place{
		"getafe": {Lat: 40.308, Lon: -3.732},
		"parla":  {Lat: 40.237, Lon: -3.773},
	}}
	c := New(geo, &fakeSearcher{})

	coords, _, err := c.Resolve(context.Background(), munis("getafe", "atlantis", "parla"))

	require.Error(t, err)
	assert.Nil(t, coords)

	var miss *nominatim.LookupMissError
	require.ErrorAs(t, err, &miss)
	assert.Equal(t, "atlantis", miss.Query)

	// Nothing past the miss is looked up.
	assert.Equal(t, []string{"getafe", "atlantis"}, geo.lookups)
}

func TestResolve_SkipMisses(t *testing.T) {
	geo := &fakeGeocoder{places: map[string]*nominatim.Place{
		"getafe": {Lat: 40.308, Lon: -3.732},
		"parla":  {Lat: 40.237, Lon: -3.773},
	}}
	c := New(geo, &fakeSearcher{}, WithSkipMisses())

	coords, misses, err := c.Resolve(context.Background(), munis("getafe", "atlantis", "parla"))

	require.NoError(t, err)
	require.Len(t, coords, 2)
	assert.Equal(t, "getafe", coords[0].Name)
	assert.Equal(t, "parla", coords[1].Name)

	require.Len(t, misses, 1)
	assert.Equal(t, "atlantis", misses[0].Municipality)
	assert.Zero(t, misses[0].CategoryCode)
}

func TestResolve_SkipMissesStillAbortsOnTransport(t *testing.T) {
	geo := &fakeGeocoder{
		places: map[string]*nominatim.Place{"getafe": {Lat: 1, Lon: 2}},
		errs:   map[string]error{"leganes": errors.New("connection refused")},
	}
	c := New(geo, &fakeSearcher{}, WithSkipMisses())

	_, _, err := c.Resolve(context.Background(), munis("getafe", "leganes"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolve leganes")
}

func TestCollectAll_CanonicalOrder(t *testing.T) {
	search := &fakeSearcher{respond: oneRowPerPair}
	c := New(&fakeGeocoder{}, search)

	coords := []MunicipalityCoord{
		{Name: "getafe", Lat: 1, Lon: -1},
		{Name: "leganes", Lat: 2, Lon: -2},
	}

	table, pairErrs, err := c.CollectAll(context.Background(), coords, cats(16032, 13065))

	require.NoError(t, err)
	assert.Empty(t, pairErrs)

	// M×C searches, municipality-major, category-minor.
	require.Len(t, search.queries, 4)
	assert.Equal(t, foursquare.SearchQuery{Lat: 1, Lon: -1, RadiusMeters: 2000, CategoryCode: 16032}, search.queries[0])
	assert.Equal(t, foursquare.SearchQuery{Lat: 1, Lon: -1, RadiusMeters: 2000, CategoryCode: 13065}, search.queries[1])
	assert.Equal(t, foursquare.SearchQuery{Lat: 2, Lon: -2, RadiusMeters: 2000, CategoryCode: 16032}, search.queries[2])
	assert.Equal(t, foursquare.SearchQuery{Lat: 2, Lon: -2, RadiusMeters: 2000, CategoryCode: 13065}, search.queries[3])

	// Rows appended in the same canonical order.
	require.Len(t, table, 4)
	assert.Equal(t, "1/16032", table[0]["fsq_id"])
	assert.Equal(t, "1/13065", table[1]["fsq_id"])
	assert.Equal(t, "2/16032", table[2]["fsq_id"])
	assert.Equal(t, "2/13065", table[3]["fsq_id"])
	assert.Equal(t, "getafe", table[0]["municipio"])
	assert.Equal(t, "leganes", table[3]["municipio"])
}

func TestCollectAll_Radius(t *testing.T) {
	search := &fakeSearcher{}
	c := New(&fakeGeocoder{}, search, WithRadius(500))

	_, _, err := c.CollectAll(context.Background(),
		[]MunicipalityCoord{{Name: "getafe", Lat: 1, Lon: 2}}, cats(16032))

	require.NoError(t, err)
	require.Len(t, search.queries, 1)
	assert.Equal(t, 500, search.queries[0].RadiusMeters)
}

func TestCollectAll_Limit(t *testing.T) {
	search := &fakeSearcher{}
	c := New(&fakeGeocoder{}, search, WithLimit(25))

	_, _, err := c.CollectAll(context.Background(),
		[]MunicipalityCoord{{Name: "getafe", Lat: 1, Lon: 2}}, cats(16032))

	require.NoError(t, err)
	require.Len(t, search.queries, 1)
	assert.Equal(t, 25, search.queries[0].Limit)
}

func TestCollectAll_RecordsPairErrors(t *testing.T) {
	search := &fakeSearcher{respond: func(q foursquare.SearchQuery) ([]map[string]any, error) {
		if q.CategoryCode == 13065 {
			return nil, &foursquare.BadResponseError{Status: 500, Reason: "server error"}
		}
		return oneRowPerPair(q)
	}}
	c := New(&fakeGeocoder{}, search)

	coords := []MunicipalityCoord{
		{Name: "getafe", Lat: 1, Lon: -1},
		{Name: "leganes", Lat: 2, Lon: -2},
	}

	table, pairErrs, err := c.CollectAll(context.Background(), coords, cats(16032, 13065))

	require.NoError(t, err)

	// Failed pairs are skipped, the rest of the run continues.
	require.Len(t, table, 2)
	assert.Equal(t, "getafe", table[0]["municipio"])
	assert.Equal(t, "leganes", table[1]["municipio"])

	require.Len(t, pairErrs, 2)
	assert.Equal(t, "getafe", pairErrs[0].Municipality)
	assert.Equal(t, 13065, pairErrs[0].CategoryCode)
	assert.Equal(t, "leganes", pairErrs[1].Municipality)

	var bad *foursquare.BadResponseError
	require.ErrorAs(t, pairErrs[0], &bad)
	assert.Equal(t, 500, bad.Status)
}

func TestCollectAll_FailFast(t *testing.T) {
	search := &fakeSearcher{respond: func(q foursquare.SearchQuery) ([]map[string]any, error) {
		if q.CategoryCode == 13065 {
			return nil, &foursquare.BadResponseError{Status: 500, Reason: "server error"}
		}
		return oneRowPerPair(q)
	}}
	c := New(&fakeGeocoder{}, search, WithFailFast())

	coords := []MunicipalityCoord{{Name: "getafe", Lat: 1, Lon: -1}}

	table, _, err := c.CollectAll(context.Background(), coords, cats(16032, 13065))

	require.Error(t, err)
	assert.Nil(t, table)
	assert.Contains(t, err.Error(), "run aborted")

	// The loop stopped at the failing pair.
	assert.Len(t, search.queries, 2)
}

func TestCollectAll_LenientBatchStillContributes(t *testing.T) {
	search := &fakeSearcher{respond: func(q foursquare.SearchQuery) ([]map[string]any, error) {
		if q.CategoryCode == 13065 {
			return []map[string]any{placeRow(map[string]any{"geocodes": nil})}, nil
		}
		return oneRowPerPair(q)
	}}
	c := New(&fakeGeocoder{}, search)

	coords := []MunicipalityCoord{{Name: "getafe", Lat: 1, Lon: -1}}

	table, pairErrs, err := c.CollectAll(context.Background(), coords, cats(16032, 13065))

	require.NoError(t, err)

	// The lenient batch lands in pre-extraction shape next to clean rows.
	require.Len(t, table, 2)
	assert.Contains(t, table[0], "id_categoria")
	assert.NotContains(t, table[1], "id_categoria")
	assert.Contains(t, table[1], "categories")
	assert.Equal(t, "getafe", table[1]["municipio"])

	require.Len(t, pairErrs, 1)
	var batchErr *BatchError
	require.ErrorAs(t, pairErrs[0], &batchErr)
	assert.Equal(t, "geocodes", batchErr.Field)
}

func TestCollectAll_FailFastKeepsLenientBatches(t *testing.T) {
	search := &fakeSearcher{respond: func(q foursquare.SearchQuery) ([]map[string]any, error) {
		return []map[string]any{placeRow(map[string]any{"location": nil})}, nil
	}}
	c := New(&fakeGeocoder{}, search, WithFailFast())

	coords := []MunicipalityCoord{{Name: "getafe", Lat: 1, Lon: -1}}

	table, pairErrs, err := c.CollectAll(context.Background(), coords, cats(16032))

	// Lenient fallback is not a fatal failure even under fail-fast.
	require.NoError(t, err)
	assert.Len(t, table, 1)
	assert.Len(t, pairErrs, 1)
}

func TestCollectAll_StrictFailFastAborts(t *testing.T) {
	search := &fakeSearcher{respond: func(q foursquare.SearchQuery) ([]map[string]any, error) {
		return []map[string]any{placeRow(map[string]any{"location": nil})}, nil
	}}
	c := New(&fakeGeocoder{}, search, WithFailFast(), WithPolicy(PolicyStrict))

	coords := []MunicipalityCoord{{Name: "getafe", Lat: 1, Lon: -1}}

	table, _, err := c.CollectAll(context.Background(), coords, cats(16032))

	require.Error(t, err)
	assert.Nil(t, table)
}

func TestCollectAll_ConcurrencyMatchesSequential(t *testing.T) {
	coords := []MunicipalityCoord{
		{Name: "getafe", Lat: 1, Lon: -1},
		{Name: "leganes", Lat: 2, Lon: -2},
		{Name: "parla", Lat: 3, Lon: -3},
	}
	categories := cats(16032, 13065)

	sequential := New(&fakeGeocoder{}, &fakeSearcher{respond: oneRowPerPair})
	wantTable, _, err := sequential.CollectAll(context.Background(), coords, categories)
	require.NoError(t, err)

	var mu sync.Mutex
	var dones []int
	parallel := New(&fakeGeocoder{}, &fakeSearcher{respond: oneRowPerPair},
		WithConcurrency(4),
		WithProgress(func(done, total int) {
			assert.Equal(t, 6, total)
			mu.Lock()
			dones = append(dones, done)
			mu.Unlock()
		}))
	gotTable, pairErrs, err := parallel.CollectAll(context.Background(), coords, categories)

	require.NoError(t, err)
	assert.Empty(t, pairErrs)
	assert.Equal(t, wantTable, gotTable)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, dones)
}

func TestCollectAll_ConcurrentPairErrorsKeepCanonicalOrder(t *testing.T) {
	search := &fakeSearcher{respond: func(q foursquare.SearchQuery) ([]map[string]any, error) {
		if q.CategoryCode == 13065 {
			return nil, &foursquare.BadResponseError{Status: 429, Reason: "rate limited"}
		}
		return oneRowPerPair(q)
	}}
	c := New(&fakeGeocoder{}, search, WithConcurrency(3))

	coords := []MunicipalityCoord{
		{Name: "getafe", Lat: 1, Lon: -1},
		{Name: "leganes", Lat: 2, Lon: -2},
	}

	table, pairErrs, err := c.CollectAll(context.Background(), coords, cats(16032, 13065))

	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "getafe", table[0]["municipio"])
	assert.Equal(t, "leganes", table[1]["municipio"])

	require.Len(t, pairErrs, 2)
	assert.Equal(t, "getafe", pairErrs[0].Municipality)
	assert.Equal(t, "leganes", pairErrs[1].Municipality)
}

func TestCollectAll_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(&fakeGeocoder{}, &fakeSearcher{respond: oneRowPerPair})
	table, _, err := c.CollectAll(ctx,
		[]MunicipalityCoord{{Name: "getafe", Lat: 1, Lon: -1}}, cats(16032))

	require.Error(t, err)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectAll_NoPairs(t *testing.T) {
	c := New(&fakeGeocoder{}, &fakeSearcher{})

	table, pairErrs, err := c.CollectAll(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Empty(t, table)
	assert.Empty(t, pairErrs)
}

func TestSummarize(t *testing.T) {
	started := time.Now().Add(-2 * time.Second)
	coords := []MunicipalityCoord{{Name: "getafe"}, {Name: "leganes"}}
	table := Table{{}, {}, {}}
	errs := []PairError{{Municipality: "getafe", CategoryCode: 13065}}

	s := Summarize(started, table, coords, cats(16032, 13065), errs)

	assert.Equal(t, 2, s.Municipalities)
	assert.Equal(t, 2, s.Categories)
	assert.Equal(t, 4, s.Pairs)
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, started, s.Started)
	assert.GreaterOrEqual(t, s.Elapsed, 2*time.Second)

	_, err := uuid.Parse(s.RunID)
	assert.NoError(t, err)
}
