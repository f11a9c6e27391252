// Package registry discovers and classifies organism variant catalogs.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNotFound indicates a requested catalog name or category that did not
// resolve to a discovered catalog.
var ErrNotFound = errors.New("catalog not found")

// Descriptor describes one discovered catalog. Descriptors are created once
// at discovery time and never change for the process lifetime.
type Descriptor struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Category     string `json:"category"`
	OrganismType string `json:"organism_type"`
	FilePath     string `json:"file_path"`
	Description  string `json:"description"`
}

// classification is the static table mapping canonical catalog names to
// their category, organism type, and display name. Iteration uses the
// declared slice order, which makes free-text detection deterministic.
type classification struct {
	name         string
	category     string
	organismType string
	displayName  string
}

var classifications = []classification{
	{"maize", "cereals", "cereal", "Maize (Corn)"},
	{"rice", "cereals", "cereal", "Rice"},
	{"millet", "cereals", "cereal", "Millet"},
	{"chikpea", "legumes", "legume", "Chickpea"},
	{"soyabean", "legumes", "legume", "Soybean"},
	{"cotton", "fiber_crops", "fiber_crop", "Cotton"},
}

// synonyms maps colloquial names to canonical catalog names, checked after
// the classification table during free-text detection.
var synonyms = []struct{ term, name string }{
	{"corn", "maize"},
	{"chickpea", "chikpea"},
	{"chick pea", "chikpea"},
	{"soybean", "soyabean"},
	{"soy bean", "soyabean"},
}

// Registry holds the catalogs discovered in a data directory.
type Registry struct {
	catalogs map[string]*Descriptor
	order    []string // discovery order, for stable listings
	logger   *zap.Logger
}

// Discover scans dir for catalog files (*.bim, *.bim.gz) and classifies
// them. A missing directory yields an empty registry, not an error: catalogs
// are provisioned out of band and may simply not be mounted yet.
func Discover(dir string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		catalogs: make(map[string]*Descriptor),
		logger:   logger,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("catalog directory not found", zap.String("dir", dir))
			return r, nil
		}
		return nil, fmt.Errorf("read catalog directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := catalogStem(entry.Name()); ok {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, fileName := range names {
		stem, _ := catalogStem(fileName)
		name := strings.ToLower(stem)
		if _, dup := r.catalogs[name]; dup {
			continue // e.g. maize.bim next to maize.bim.gz
		}

		d := describe(name, filepath.Join(dir, fileName))
		r.catalogs[name] = d
		r.order = append(r.order, name)
		logger.Info("discovered catalog",
			zap.String("name", d.Name),
			zap.String("category", d.Category))
	}

	return r, nil
}

// catalogStem strips the catalog file extensions and reports whether the
// file looks like a catalog at all.
func catalogStem(fileName string) (string, bool) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".bim.gz"):
		return fileName[:len(fileName)-len(".bim.gz")], true
	case strings.HasSuffix(lower, ".bim"):
		return fileName[:len(fileName)-len(".bim")], true
	}
	return "", false
}

// describe builds a descriptor for a canonical name. Names outside the
// classification table fall into the "other" category with a title-cased
// display name.
func describe(name, path string) *Descriptor {
	for _, c := range classifications {
		if c.name == name {
			return &Descriptor{
				Name:         name,
				DisplayName:  c.displayName,
				Category:     c.category,
				OrganismType: c.organismType,
				FilePath:     path,
				Description:  c.displayName + " SNP dataset",
			}
		}
	}

	display := titleCase(name)
	return &Descriptor{
		Name:         name,
		DisplayName:  display,
		Category:     "other",
		OrganismType: "unknown",
		FilePath:     path,
		Description:  display + " SNP dataset",
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Get returns the catalog for a canonical name (case-insensitive).
func (r *Registry) Get(name string) (*Descriptor, error) {
	d, ok := r.catalogs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return d, nil
}

// IsAvailable reports whether a catalog was discovered.
func (r *Registry) IsAvailable(name string) bool {
	_, ok := r.catalogs[strings.ToLower(name)]
	return ok
}

// List returns all catalogs in discovery order.
func (r *Registry) List() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.catalogs[name])
	}
	return out
}

// Names returns the canonical names of all discovered catalogs.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Categories returns every category with at least one classification entry,
// plus "all".
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range classifications {
		if !seen[c.category] {
			seen[c.category] = true
			out = append(out, c.category)
		}
	}
	out = append(out, "all")
	return out
}

// ByCategory returns all catalogs in a category. Category "all" returns
// everything.
func (r *Registry) ByCategory(category string) []*Descriptor {
	if category == "all" {
		return r.List()
	}
	var out []*Descriptor
	for _, name := range r.order {
		if r.catalogs[name].Category == category {
			out = append(out, r.catalogs[name])
		}
	}
	return out
}

// ByType returns all catalogs with the given organism type.
func (r *Registry) ByType(organismType string) []*Descriptor {
	var out []*Descriptor
	for _, name := range r.order {
		if r.catalogs[name].OrganismType == organismType {
			out = append(out, r.catalogs[name])
		}
	}
	return out
}

// Search returns catalogs whose name, display name, category, or organism
// type contains the query (case-insensitive).
func (r *Registry) Search(query string) []*Descriptor {
	q := strings.ToLower(query)
	var out []*Descriptor
	for _, name := range r.order {
		d := r.catalogs[name]
		if strings.Contains(strings.ToLower(d.Name), q) ||
			strings.Contains(strings.ToLower(d.DisplayName), q) ||
			strings.Contains(strings.ToLower(d.Category), q) ||
			strings.Contains(strings.ToLower(d.OrganismType), q) {
			out = append(out, d)
		}
	}
	return out
}

// DetectFromText resolves a catalog name from free text by case-insensitive
// substring matching: first against canonical names and display names in
// classification-table order, then against the synonym table. The first
// match wins; only discovered catalogs are returned.
func (r *Registry) DetectFromText(text string) (string, bool) {
	lower := strings.ToLower(text)

	for _, c := range classifications {
		if !r.IsAvailable(c.name) {
			continue
		}
		if strings.Contains(lower, c.name) ||
			strings.Contains(lower, strings.ToLower(c.displayName)) {
			return c.name, true
		}
	}

	for _, s := range synonyms {
		if r.IsAvailable(s.name) && strings.Contains(lower, s.term) {
			return s.name, true
		}
	}

	return "", false
}
