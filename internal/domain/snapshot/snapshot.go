// Package snapshot reads the curated DRS server snapshot and prepares
// it for plotting. Rows with unparseable coordinates or sizes are
// skipped with a warning rather than failing the run.
package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ga4gh-tools/svcreg/internal/log"
)

// Column names expected in the snapshot header.
const (
	ColName    = "Name"
	ColLatLong = "Lat_Long"
	ColSizeGB  = "TotalSize_GB"
	ColOrg     = "Organization"
	ColURL     = "URL"
	ColContact = "Contact"
)

var (
	// ErrSnapshotNotFound indicates the snapshot file is missing.
	ErrSnapshotNotFound = errors.New("snapshot file not found")
	// ErrNoValidRows indicates no row had parseable coordinates.
	ErrNoValidRows = errors.New("snapshot has no valid rows")
	// ErrMissingColumn indicates a required header column is absent.
	ErrMissingColumn = errors.New("snapshot missing required column")
)

// Server is one registered DRS server with a resolved geolocation.
type Server struct {
	Name         string
	URL          string
	Organization string
	Contact      string
	Lat          float64
	Lon          float64
	SizeGB       float64
}

// SkippedRow records a snapshot row that failed validation.
type SkippedRow struct {
	Line   int // 1-based line number in the file
	Reason string
}

// ParseLatLong splits a "lat, lon" cell into coordinates.
func ParseLatLong(raw string) (lat, lon float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected \"lat, lon\", got %q", raw)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude %q: %w", strings.TrimSpace(parts[0]), err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude %q: %w", strings.TrimSpace(parts[1]), err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: %v, %v", lat, lon)
	}
	return lat, lon, nil
}

// Load reads the tab-separated snapshot at path. Invalid rows are
// returned as SkippedRows; a missing file or an empty valid set is an
// error.
func Load(path string) ([]Server, []SkippedRow, error) {
	f, err := os.Open(path) //nolint:gosec // G304: snapshot path comes from config/flags
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, path)
		}
		return nil, nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	servers, skipped, err := Parse(f)
	if err != nil {
		return nil, skipped, fmt.Errorf("reading %s: %w", path, err)
	}
	return servers, skipped, nil
}

// Parse decodes snapshot rows from r.
func Parse(r io.Reader) ([]Server, []SkippedRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrNoValidRows
		}
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColName, ColLatLong, ColSizeGB} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var (
		servers []Server
		skipped []SkippedRow
		line    = 1
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped = append(skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		lat, lon, err := ParseLatLong(field(ColLatLong))
		if err != nil {
			skipped = append(skipped, SkippedRow{Line: line, Reason: err.Error()})
			log.Warn(log.CatSnapshot, "skipping row with bad coordinates", "line", line, "reason", err.Error())
			continue
		}

		size, err := strconv.ParseFloat(field(ColSizeGB), 64)
		if err != nil {
			skipped = append(skipped, SkippedRow{Line: line, Reason: fmt.Sprintf("size %q: %v", field(ColSizeGB), err)})
			log.Warn(log.CatSnapshot, "skipping row with bad size", "line", line)
			continue
		}

		servers = append(servers, Server{
			Name:         field(ColName),
			URL:          field(ColURL),
			Organization: field(ColOrg),
			Contact:      field(ColContact),
			Lat:          lat,
			Lon:          lon,
			SizeGB:       size,
		})
	}

	if len(servers) == 0 {
		return nil, skipped, ErrNoValidRows
	}
	return servers, skipped, nil
}
