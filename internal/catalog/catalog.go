// Package catalog defines the municipality and category lists a collection
// run iterates over. The defaults cover the Comunidad de Madrid dataset; a
// YAML file can override either list without recompiling.
package catalog

import (
	"os"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Municipality is one geocoding target. Query overrides the text sent to the
// geocoder; when empty the Slug is submitted as-is.
type Municipality struct {
	Slug  string `yaml:"slug"`
	Query string `yaml:"query,omitempty"`
}

// UnmarshalYAML accepts either a bare string or a {slug, query} mapping.
func (m *Municipality) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Slug = node.Value
		m.Query = ""
		return nil
	}

	type plain Municipality
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*m = Municipality(p)
	return nil
}

// GeocodeQuery returns the text submitted to the geocoder.
func (m Municipality) GeocodeQuery() string {
	if m.Query != "" {
		return m.Query
	}
	return m.Slug
}

// Category is one Foursquare place category.
type Category struct {
	Code     int    `yaml:"code"`
	Name     string `yaml:"name"`
	Taxonomy string `yaml:"taxonomy,omitempty"`
}

// Catalog is the full iteration surface of a collection run. Order is
// significant: municipalities and categories are visited exactly as listed.
type Catalog struct {
	Municipalities []Municipality `yaml:"municipalities"`
	Categories     []Category     `yaml:"categories"`
}

// LoadFile reads a catalog override from a YAML file. Sections absent from
// the file keep the defaults.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrap(err, "catalog: parse")
	}

	cat := Default()
	if len(file.Municipalities) > 0 {
		cat.Municipalities = file.Municipalities
	}
	if len(file.Categories) > 0 {
		cat.Categories = file.Categories
	}

	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Validate checks both lists for emptiness and duplicates. Slugs are
// compared accent- and case-insensitively so "Móstoles" collides with
// "mostoles".
func (c *Catalog) Validate() error {
	if len(c.Municipalities) == 0 {
		return eris.New("catalog: no municipalities")
	}
	if len(c.Categories) == 0 {
		return eris.New("catalog: no categories")
	}

	seen := make(map[string]string, len(c.Municipalities))
	for _, m := range c.Municipalities {
		if strings.TrimSpace(m.Slug) == "" {
			return eris.New("catalog: municipality with empty slug")
		}
		key := foldName(m.Slug)
		if prev, ok := seen[key]; ok {
			return eris.Errorf("catalog: duplicate municipality %q (collides with %q)", m.Slug, prev)
		}
		seen[key] = m.Slug
	}

	codes := make(map[int]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Code <= 0 {
			return eris.Errorf("catalog: invalid category code %d", cat.Code)
		}
		if _, ok := codes[cat.Code]; ok {
			return eris.Errorf("catalog: duplicate category code %d", cat.Code)
		}
		codes[cat.Code] = struct{}{}
	}

	return nil
}

// CategoryByCode looks up a category in the catalog.
func (c *Catalog) CategoryByCode(code int) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Code == code {
			return cat, true
		}
	}
	return Category{}, false
}

// Subset returns a copy of the catalog narrowed to the given municipality
// slugs and category codes, preserving catalog order. Nil or empty selectors
// keep the full list. Unknown selectors are an error so a typo cannot
// silently shrink a run.
func (c *Catalog) Subset(slugs []string, codes []int) (*Catalog, error) {
	out := &Catalog{
		Municipalities: c.Municipalities,
		Categories:     c.Categories,
	}

	if len(slugs) > 0 {
		want := make(map[string]bool, len(slugs))
		for _, s := range slugs {
			want[foldName(s)] = false
		}

		var munis []Municipality
		for _, m := range c.Municipalities {
			key := foldName(m.Slug)
			if _, ok := want[key]; ok {
				want[key] = true
				munis = append(munis, m)
			}
		}
		for _, s := range slugs {
			if !want[foldName(s)] {
				return nil, eris.Errorf("catalog: unknown municipality %q", s)
			}
		}
		out.Municipalities = munis
	}

	if len(codes) > 0 {
		want := make(map[int]bool, len(codes))
		for _, code := range codes {
			want[code] = false
		}

		var cats []Category
		for _, cat := range c.Categories {
			if _, ok := want[cat.Code]; ok {
				want[cat.Code] = true
				cats = append(cats, cat)
			}
		}
		for _, code := range codes {
			if !want[code] {
				return nil, eris.Errorf("catalog: unknown category code %d", code)
			}
		}
		out.Categories = cats
	}

	return out, nil
}

// foldName lowercases, trims, and strips combining marks so slug comparison
// survives accent variants.
func foldName(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)
	return s
}
