package sky

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/star/hawkietc/internal/photometry"
)

// defaultSurfaceBrightness is the dark-time Paranal near-infrared sky at
// zenith in Vega mag arcsec^-2.
var defaultSurfaceBrightness = map[string]float64{
	"Y":       17.3,
	"NB1060":  17.5,
	"NB1190":  17.5,
	"J":       16.5,
	"CH4":     14.5,
	"H":       14.4,
	"NB2090":  13.3,
	"H2":      13.2,
	"Ks":      13.0,
	"BrGamma": 13.1,
}

// Table is an offline Source holding the zenith sky surface brightness per
// filter. The brightness is scaled linearly with airmass; PWV and moon
// parameters are ignored.
type Table struct {
	entries map[string]tableEntry
}

type tableEntry struct {
	name string
	mag  float64
}

type tableFile struct {
	Filters map[string]float64 `yaml:"filters"`
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	t, err := NewTable(defaultSurfaceBrightness)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTable builds a table from filter name to zenith surface brightness in
// Vega mag arcsec^-2. Names match case-insensitively.
func NewTable(mags map[string]float64) (*Table, error) {
	if len(mags) == 0 {
		return nil, fmt.Errorf("sky table is empty")
	}
	t := &Table{entries: make(map[string]tableEntry, len(mags))}
	for name, mag := range mags {
		if math.IsNaN(mag) || math.IsInf(mag, 0) {
			return nil, fmt.Errorf("sky table entry %s: brightness %v is not finite", name, mag)
		}
		key := strings.ToLower(name)
		if _, dup := t.entries[key]; dup {
			return nil, fmt.Errorf("sky table entry %s: duplicate filter", name)
		}
		t.entries[key] = tableEntry{name: name, mag: mag}
	}
	return t, nil
}

// ParseTable reads a YAML table of the form
//
//	filters:
//	  Ks: 13.0
//	  J: 16.5
func ParseTable(r io.Reader) (*Table, error) {
	var f tableFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding sky table: %w", err)
	}
	return NewTable(f.Filters)
}

// LoadTable reads a YAML table from path.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sky table: %w", err)
	}
	defer f.Close()

	t, err := ParseTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Name returns "table".
func (t *Table) Name() string { return "table" }

// Filters returns the tabulated filter names, sorted.
func (t *Table) Filters() []string {
	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		names = append(names, e.name)
	}
	sort.Strings(names)
	return names
}

// SurfaceBrightness returns the sky brightness in Vega mag arcsec^-2 for
// filter at the given airmass.
func (t *Table) SurfaceBrightness(filter string, airmass float64) (float64, error) {
	e, ok := t.entries[strings.ToLower(filter)]
	if !ok {
		return 0, fmt.Errorf("%w: filter %s not in sky table", ErrNoData, filter)
	}
	if airmass < 1 {
		airmass = 1
	}
	return e.mag - 2.5*math.Log10(airmass), nil
}

// Background converts the tabulated surface brightness to a photon rate
// through band. It never blocks.
func (t *Table) Background(_ context.Context, band Band, q Query) (Background, error) {
	if err := q.Validate(); err != nil {
		return Background{}, err
	}
	mu, err := t.SurfaceBrightness(band.Name(), q.Airmass)
	if err != nil {
		return Background{}, err
	}
	rate, err := photometry.Vega(mu).PhotonRate(band)
	if err != nil {
		return Background{}, fmt.Errorf("%w: %w", ErrNoData, err)
	}
	return Background{PhotonRate: rate, Source: t.Name()}, nil
}
