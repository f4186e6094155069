package sources

import (
	"sort"
	"strings"
	"time"

	"github.com/pevans/newsharvest/scraper"
	"github.com/pevans/newsharvest/timestamp"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Builtin returns the sites newsharvest knows out of the box.
func Builtin() []Site {
	return []Site{
		{
			Name:      "detik",
			StartDate: date(2005, time.January, 1),
			Pacing:    Pacing{PageDelay: 10 * time.Second, DateDelay: 15 * time.Second},
			Location:  timestamp.WIB,
			Sections:  sortedKeys(scraper.DetikSections),
			Build: func(deps Deps, section string) (scraper.Extractor, scraper.Extractor, error) {
				d, err := scraper.NewDetik(deps.Fetcher, section)
				if err != nil {
					return nil, nil, err
				}
				return d, nil, nil
			},
		},
		{
			Name:      "kompas",
			StartDate: date(2013, time.May, 1),
			Pacing:    Pacing{PageDelay: 4 * time.Second, DateDelay: 8 * time.Second},
			Location:  timestamp.WIB,
			Sections:  scraper.KompasSections,
			Build: func(deps Deps, section string) (scraper.Extractor, scraper.Extractor, error) {
				return scraper.NewKompas(deps.Fetcher), nil, nil
			},
		},
		{
			Name:      "bisnis",
			StartDate: date(2010, time.December, 1),
			Pacing:    Pacing{PageDelay: 10 * time.Second, DateDelay: 15 * time.Second},
			Location:  timestamp.WIB,
			Sections:  bisnisChannelIDs(),
			Canonical: scraper.BisnisChannelID,
			Build: func(deps Deps, section string) (scraper.Extractor, scraper.Extractor, error) {
				return scraper.NewBisnis(deps.Fetcher), nil, nil
			},
		},
		{
			Name:      "kontan",
			StartDate: date(2011, time.January, 2),
			Pacing:    Pacing{PageDelay: 4 * time.Second, DateDelay: 8 * time.Second},
			Location:  timestamp.WIB,
			Sections:  scraper.KontanSections,
			Build: func(deps Deps, section string) (scraper.Extractor, scraper.Extractor, error) {
				return scraper.NewKontan(deps.Fetcher, deps.Clock), nil, nil
			},
		},
		{
			Name:      "cnbc",
			StartDate: date(2018, time.January, 8),
			Pacing:    Pacing{PageDelay: 4 * time.Second, DateDelay: 8 * time.Second},
			Location:  timestamp.WIB,
			Sections:  scraper.CNBCSections,
			Build: func(deps Deps, section string) (scraper.Extractor, scraper.Extractor, error) {
				return scraper.NewCNBC(deps.Fetcher, scraper.Primary), scraper.NewCNBC(deps.Fetcher, scraper.Fallback), nil
			},
		},
	}
}

// WordPressSite declares a site served through WordPress daily archive
// feeds. The "all" section is always available.
func WordPressSite(name, baseURL string, sections []string, start time.Time, pacing Pacing) Site {
	all := []string{"all"}
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section != "" && section != "all" {
			all = append(all, section)
		}
	}

	return Site{
		Name:      name,
		StartDate: start,
		Pacing:    pacing,
		Location:  timestamp.WIB,
		Sections:  all,
		Build: func(deps Deps, section string) (scraper.Extractor, scraper.Extractor, error) {
			return scraper.NewWordPress(deps.Fetcher, baseURL), nil, nil
		},
	}
}

func bisnisChannelIDs() []string {
	ids := make([]string, 0, len(scraper.BisnisChannels))
	for _, id := range scraper.BisnisChannels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
