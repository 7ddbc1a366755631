package planner

import (
	_ "embed"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
	"tripcopilot/services"
)

//go:embed cities.yaml
var citiesYAML []byte

// City is a catalog entry.
type City struct {
	Name string `yaml:"name"`
	IATA string `yaml:"iata"`

	services.LatLon `yaml:",inline"`
}

// Catalog resolves city names to coordinates and flight codes.
type Catalog struct {
	Default string `yaml:"default"`
	Cities  []City `yaml:"cities"`

	byName map[string]City
}

// LoadCatalog parses a catalog document. The default city must be listed.
func LoadCatalog(doc []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(doc, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse city catalog")
	}
	c.byName = make(map[string]City, len(c.Cities))
	for _, city := range c.Cities {
		c.byName[normalizeCity(city.Name)] = city
	}
	if _, ok := c.byName[normalizeCity(c.Default)]; !ok {
		return nil, errors.Newf("default city %q is not in the catalog", c.Default)
	}
	return c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(citiesYAML)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup finds a city by name, ignoring case and surrounding space.
func (c *Catalog) Lookup(name string) (City, bool) {
	city, ok := c.byName[normalizeCity(name)]
	return city, ok
}

// IATA returns the flight code for name, or name itself when unknown.
func (c *Catalog) IATA(name string) string {
	if city, ok := c.Lookup(name); ok && city.IATA != "" {
		return city.IATA
	}
	return name
}

// Coords resolves name, then fallback, then the catalog default.
func (c *Catalog) Coords(name, fallback string) services.LatLon {
	if city, ok := c.Lookup(name); ok {
		return city.LatLon
	}
	if city, ok := c.Lookup(fallback); ok {
		return city.LatLon
	}
	city, _ := c.Lookup(c.Default)
	return city.LatLon
}

func normalizeCity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
