// Package layouts provides predefined flash layouts for common storage areas.
package layouts

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/dargueta/sstfs/file_systems/sst"
	"github.com/gocarina/gocsv"
)

// Layout describes one predefined flash area and the file system
// configuration that goes on it.
type Layout struct {
	Slug string `csv:"slug"`
	Name string `csv:"name"`
	sst.Config
	Notes string `csv:"notes"`
}

// TotalSizeBytes gives the size of the flash area. This is the minimum size of
// an image file for the layout.
func (layout *Layout) TotalSizeBytes() int64 {
	return int64(layout.BlockSize) * int64(layout.TotalBlocks)
}

//go:embed layouts.csv
var layoutsRawCSV string
var layouts map[string]Layout

// Get returns the predefined layout with the given slug.
func Get(slug string) (Layout, error) {
	layout, ok := layouts[slug]
	if ok {
		return layout, nil
	}

	err := fmt.Errorf("no predefined layout exists with slug %q", slug)
	return Layout{}, err
}

// GetConfig is a shortcut for getting only the file system configuration of a
// layout.
func GetConfig(slug string) (sst.Config, error) {
	layout, err := Get(slug)
	return layout.Config, err
}

// All returns every predefined layout, sorted by slug.
func All() []Layout {
	result := make([]Layout, 0, len(layouts))
	for _, layout := range layouts {
		result = append(result, layout)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Slug < result[j].Slug
	})
	return result
}

func parseLayouts(rawCSV string) (map[string]Layout, error) {
	csvReader := csv.NewReader(strings.NewReader(rawCSV))
	csvReader.Comma = '|'

	var rows []Layout
	err := gocsv.UnmarshalCSV(csvReader, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode layouts: %w", err)
	}

	parsed := make(map[string]Layout, len(rows))
	for i, row := range rows {
		_, exists := parsed[row.Slug]
		if exists {
			return nil, fmt.Errorf(
				"duplicate definition for layout %q found on row %d", row.Slug, i+1)
		}

		err = row.Config.Validate()
		if err != nil {
			return nil, fmt.Errorf("layout %q on row %d: %w", row.Slug, i+1, err)
		}
		parsed[row.Slug] = row
	}
	return parsed, nil
}

func init() {
	var err error
	layouts, err = parseLayouts(layoutsRawCSV)
	if err != nil {
		panic(err)
	}
}
