package sources

import (
	"context"
	"testing"
	"time"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/scraper"
	"github.com/pevans/newsharvest/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: the built-in registry
func createBuiltinRegistry(t *testing.T) *Registry {
	r, err := NewRegistry(Builtin()...)
	require.NoError(t, err, "built-in table must be valid")
	return r
}

func TestBuiltin_Names(t *testing.T) {
	r := createBuiltinRegistry(t)
	assert.Equal(t, []string{"bisnis", "cnbc", "detik", "kompas", "kontan"}, r.Names())
}

func TestBuiltin_PacingAndStartDates(t *testing.T) {
	r := createBuiltinRegistry(t)

	tests := []struct {
		site      string
		pageDelay time.Duration
		dateDelay time.Duration
		start     time.Time
	}{
		{"kompas", 4 * time.Second, 8 * time.Second, time.Date(2013, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"detik", 10 * time.Second, 15 * time.Second, time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"bisnis", 10 * time.Second, 15 * time.Second, time.Date(2010, 12, 1, 0, 0, 0, 0, time.UTC)},
		{"kontan", 4 * time.Second, 8 * time.Second, time.Date(2011, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"cnbc", 4 * time.Second, 8 * time.Second, time.Date(2018, 1, 8, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.site, func(t *testing.T) {
			site, ok := r.Site(tt.site)
			require.True(t, ok)
			assert.Equal(t, tt.pageDelay, site.Pacing.PageDelay)
			assert.Equal(t, tt.dateDelay, site.Pacing.DateDelay)
			assert.Equal(t, tt.start, site.StartDate)
			assert.Equal(t, timestamp.WIB, site.Location)
		})
	}
}

func TestResolve_Detik(t *testing.T) {
	r := createBuiltinRegistry(t)

	source, err := r.Resolve(newsharvest.SourceIdentity{Site: "Detik", Section: "finance"}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, newsharvest.SourceIdentity{Site: "detik", Section: "finance"}, source.Identity)
	assert.IsType(t, &scraper.Detik{}, source.Primary)
	assert.False(t, source.HasFallback())
}

func TestResolve_CNBCHasFallback(t *testing.T) {
	r := createBuiltinRegistry(t)

	source, err := r.Resolve(newsharvest.SourceIdentity{Site: "cnbc", Section: "all"}, Deps{})
	require.NoError(t, err)
	assert.True(t, source.HasFallback())
	assert.IsType(t, &scraper.CNBC{}, source.Primary)
	assert.IsType(t, &scraper.CNBC{}, source.Fallback)
}

func TestResolve_BisnisLabelIsCanonicalized(t *testing.T) {
	r := createBuiltinRegistry(t)

	source, err := r.Resolve(newsharvest.SourceIdentity{Site: "bisnis", Section: "Market"}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, "194", source.Identity.Section)
}

func TestResolve_Unknown(t *testing.T) {
	r := createBuiltinRegistry(t)

	_, err := r.Resolve(newsharvest.SourceIdentity{Site: "tempo", Section: "news"}, Deps{})
	assert.ErrorIs(t, err, ErrUnknownSite)

	_, err = r.Resolve(newsharvest.SourceIdentity{Site: "detik", Section: "weather"}, Deps{})
	assert.ErrorIs(t, err, ErrUnknownSection)

	_, err = r.Resolve(newsharvest.SourceIdentity{Site: "cnbc", Section: "market"}, Deps{})
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestNewRegistry_RejectsBrokenRows(t *testing.T) {
	noop := func(Deps, string) (scraper.Extractor, scraper.Extractor, error) {
		return scraper.ExtractorFunc(func(context.Context, string, int, time.Time) ([]newsharvest.ArticleRecord, error) {
			return nil, nil
		}), nil, nil
	}

	_, err := NewRegistry(
		Site{Name: "a", Sections: []string{"x"}, Build: noop},
		Site{Name: "A", Sections: []string{"x"}, Build: noop},
	)
	assert.ErrorIs(t, err, ErrDuplicateSite)

	_, err = NewRegistry(Site{Name: "a", Sections: []string{"x"}})
	assert.Error(t, err, "missing extractor")

	_, err = NewRegistry(Site{Name: "a", Build: noop})
	assert.Error(t, err, "missing sections")

	_, err = NewRegistry(Site{
		Name:     "a",
		Sections: []string{"x"},
		Build: func(Deps, string) (scraper.Extractor, scraper.Extractor, error) {
			return nil, nil, nil
		},
	})
	assert.Error(t, err, "nil primary extractor")
}

func TestRegistry_Override(t *testing.T) {
	r := createBuiltinRegistry(t)
	pageDelay := 500 * time.Millisecond
	start := time.Date(2020, 1, 1, 15, 0, 0, 0, time.UTC)

	require.NoError(t, r.Override("kompas", Override{PageDelay: &pageDelay, StartDate: &start}))

	source, err := r.Resolve(newsharvest.SourceIdentity{Site: "kompas", Section: "news"}, Deps{})
	require.NoError(t, err)
	assert.Equal(t, pageDelay, source.Pacing.PageDelay)
	assert.Equal(t, 8*time.Second, source.Pacing.DateDelay, "unset fields keep their default")
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), source.StartDate)

	assert.ErrorIs(t, r.Override("tempo", Override{}), ErrUnknownSite)
}

func TestWordPressSite(t *testing.T) {
	site := WordPressSite("Example", "https://example.id", []string{"ekonomi", "all", " "},
		time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), Pacing{PageDelay: time.Second, DateDelay: 2 * time.Second})

	r, err := NewRegistry(append(Builtin(), site)...)
	require.NoError(t, err)

	source, err := r.Resolve(newsharvest.SourceIdentity{Site: "example", Section: "ekonomi"}, Deps{})
	require.NoError(t, err)
	assert.IsType(t, &scraper.WordPress{}, source.Primary)
	assert.Equal(t, []string{"all", "ekonomi"}, site.Sections)
}
