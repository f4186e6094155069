package sources

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/pevans/newsharvest"
	"github.com/pevans/newsharvest/discovery"
	"github.com/pevans/newsharvest/scraper"
	"github.com/pevans/newsharvest/timestamp"
)

// Custom errors for source lookups
var (
	ErrUnknownSite    = errors.New("unknown site")
	ErrUnknownSection = errors.New("unknown section for site")
	ErrDuplicateSite  = errors.New("site registered twice")
)

// Pacing holds the pauses inserted between requests to one site.
type Pacing struct {
	PageDelay time.Duration `json:"page_delay"`
	DateDelay time.Duration `json:"date_delay"`
}

// Deps are the collaborators extractors are built with.
type Deps struct {
	Fetcher discovery.Fetcher
	Clock   scraper.Clock
}

// BuildFunc creates the extractors for one section of a site. fallback is
// nil for sites with a single layout.
type BuildFunc func(deps Deps, section string) (primary, fallback scraper.Extractor, err error)

// Site is one row of the registration table.
type Site struct {
	Name      string
	StartDate time.Time
	Pacing    Pacing
	// Location is the zone the site's calendar days are counted in.
	Location *time.Location
	// Sections lists the canonical section names.
	Sections []string
	// Canonical maps user input to a canonical section name. When nil the
	// input must appear in Sections as is.
	Canonical func(section string) (string, bool)
	Build     BuildFunc
}

// canonicalSection resolves section against the site's section table.
func (s Site) canonicalSection(section string) (string, bool) {
	if s.Canonical != nil {
		return s.Canonical(section)
	}
	if slices.Contains(s.Sections, section) {
		return section, true
	}
	return "", false
}

// Override changes the pacing or start date of a site. Nil fields are left
// alone.
type Override struct {
	PageDelay *time.Duration
	DateDelay *time.Duration
	StartDate *time.Time
}

// Apply returns a copy of s with the override applied.
func (s Site) Apply(o Override) Site {
	if o.PageDelay != nil {
		s.Pacing.PageDelay = *o.PageDelay
	}
	if o.DateDelay != nil {
		s.Pacing.DateDelay = *o.DateDelay
	}
	if o.StartDate != nil {
		s.StartDate = newsharvest.DayOf(*o.StartDate)
	}
	return s
}

// Source is the immutable configuration of one crawl: which site and
// section, where the history starts, how fast to go and which extractors to
// use.
type Source struct {
	Identity  newsharvest.SourceIdentity
	StartDate time.Time
	Pacing    Pacing
	Location  *time.Location
	Primary   scraper.Extractor
	Fallback  scraper.Extractor
}

// HasFallback reports whether the source has an alternate layout.
func (s Source) HasFallback() bool {
	return s.Fallback != nil
}

// Registry maps (site, section) identities to their extractors.
type Registry struct {
	sites map[string]Site
}

// NewRegistry builds a registry from the given sites. Every declared
// section of every site is built once so that a broken row fails here
// rather than in the middle of a crawl.
func NewRegistry(sites ...Site) (*Registry, error) {
	r := &Registry{sites: make(map[string]Site, len(sites))}

	for _, site := range sites {
		site.Name = strings.ToLower(site.Name)
		if site.Name == "" {
			return nil, errors.New("site without a name")
		}
		if _, exists := r.sites[site.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSite, site.Name)
		}
		if site.Build == nil {
			return nil, fmt.Errorf("site %s has no extractor", site.Name)
		}
		if len(site.Sections) == 0 {
			return nil, fmt.Errorf("site %s has no sections", site.Name)
		}
		if site.Location == nil {
			site.Location = timestamp.WIB
		}

		for _, section := range site.Sections {
			if _, ok := site.canonicalSection(section); !ok {
				return nil, fmt.Errorf("site %s does not accept its own section %q", site.Name, section)
			}
			primary, _, err := site.Build(Deps{}, section)
			if err != nil {
				return nil, fmt.Errorf("site %s section %q: %w", site.Name, section, err)
			}
			if primary == nil {
				return nil, fmt.Errorf("site %s section %q has no primary extractor", site.Name, section)
			}
		}

		r.sites[site.Name] = site
	}

	return r, nil
}

// Names returns the registered site names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sites))
	for name := range r.sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Site returns the row for a site.
func (r *Registry) Site(name string) (Site, bool) {
	site, ok := r.sites[strings.ToLower(strings.TrimSpace(name))]
	return site, ok
}

// Override replaces the pacing or start date of a registered site.
func (r *Registry) Override(name string, o Override) error {
	site, ok := r.Site(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSite, name)
	}
	r.sites[site.Name] = site.Apply(o)
	return nil
}

// Resolve returns the crawl configuration for a (site, section) identity.
// The section in the returned identity is canonical.
func (r *Registry) Resolve(id newsharvest.SourceIdentity, deps Deps) (Source, error) {
	site, ok := r.Site(id.Site)
	if !ok {
		return Source{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownSite, id.Site, strings.Join(r.Names(), ", "))
	}
	section, ok := site.canonicalSection(strings.TrimSpace(id.Section))
	if !ok {
		return Source{}, fmt.Errorf("%w %s: %q", ErrUnknownSection, site.Name, id.Section)
	}

	primary, fallback, err := site.Build(deps, section)
	if err != nil {
		return Source{}, fmt.Errorf("failed to build extractor: %w", err)
	}

	return Source{
		Identity:  newsharvest.SourceIdentity{Site: site.Name, Section: section},
		StartDate: site.StartDate,
		Pacing:    site.Pacing,
		Location:  site.Location,
		Primary:   primary,
		Fallback:  fallback,
	}, nil
}
