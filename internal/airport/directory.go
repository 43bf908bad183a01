package airport

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed airports.yaml
var airportsYAML []byte

// Entry maps a city display name to its airport code. Multi-airport cities
// carry a comma-joined code such as "BJS,PKX".
type Entry struct {
	City string `yaml:"city"`
	Code string `yaml:"code"`
}

// Directory is an immutable city → airport code lookup.
// It is safe for concurrent reads.
type Directory struct {
	entries []Entry
	byCity  map[string]string
}

// New builds a Directory from entries, keeping their order for Cities.
// Duplicate or empty city names are rejected.
func New(entries []Entry) (*Directory, error) {
	d := &Directory{
		entries: make([]Entry, 0, len(entries)),
		byCity:  make(map[string]string, len(entries)),
	}
	for i, e := range entries {
		if e.City == "" || e.Code == "" {
			return nil, fmt.Errorf("airport entry %d: city and code are required", i)
		}
		if _, dup := d.byCity[e.City]; dup {
			return nil, fmt.Errorf("airport entry %d: duplicate city %q", i, e.City)
		}
		d.byCity[e.City] = e.Code
		d.entries = append(d.entries, e)
	}
	return d, nil
}

// Parse decodes a YAML list of {city, code} entries.
func Parse(data []byte) (*Directory, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding airport directory: %w", err)
	}
	return New(entries)
}

// Default returns the directory built from the embedded airports.yaml.
// It panics if the embedded data is invalid, which is a build defect.
func Default() *Directory {
	d, err := Parse(airportsYAML)
	if err != nil {
		panic(err)
	}
	return d
}

// CodeOf returns the airport code for an exact city name match.
// The boolean is false when the city is unknown.
func (d *Directory) CodeOf(city string) (string, bool) {
	code, ok := d.byCity[city]
	return code, ok
}

// Cities returns all city names in directory order.
func (d *Directory) Cities() []string {
	cities := make([]string, len(d.entries))
	for i, e := range d.entries {
		cities[i] = e.City
	}
	return cities
}

// Len returns the number of cities in the directory.
func (d *Directory) Len() int {
	return len(d.entries)
}
