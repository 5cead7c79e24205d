package submission

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ga4gh-tools/svcreg/internal/log"
)

// Table is a decoded sheet: a header row plus data rows. Cells are
// strings; typed interpretation happens during mapping.
type Table struct {
	Columns []string
	Rows    [][]string
}

// columnIndex returns the index of name in the header, or -1.
func (t Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Record is one registry submission object. Nested objects are plain
// maps so dot-path targets like "organization.name" produce nested
// JSON.
type Record map[string]any

// spreadsheet datetime layouts normalized to RFC 3339 on output.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

// BuildRecords maps every table row to a submission record. It fails
// before producing anything if a configured column is absent from the
// header. When dropEmpty is set, rows whose mapped (non-constant)
// fields are all empty are dropped instead of emitted.
func BuildRecords(table Table, cfg Config, dropEmpty bool) ([]Record, error) {
	if err := checkColumns(table, cfg); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(table.Rows))
	for rowNum, row := range table.Rows {
		cell := func(col string) string {
			i := table.columnIndex(col)
			if i < 0 || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		if skip, missing := missingRequired(cfg, cell); skip {
			log.Debug(log.CatGenerate, "skipping row missing required fields", "row", rowNum+2, "missing", missing)
			continue
		}

		obj := Record{}
		mappedValues := 0
		for _, target := range sortedTargets(cfg.Mapping) {
			rule := cfg.Mapping[target]
			var val string
			if rule.IsConst {
				val = rule.Const
			} else {
				val = cell(rule.Column)
			}
			if val == "" {
				continue
			}
			if !rule.IsConst {
				mappedValues++
			}
			setDeep(obj, target, normalizeValue(val))
		}

		if dropEmpty && mappedValues == 0 {
			log.Debug(log.CatGenerate, "dropping record with no mapped values", "row", rowNum+2)
			continue
		}

		if extra := buildExtra(cfg, cell); len(extra) > 0 {
			obj["x-extra"] = extra
		}

		records = append(records, obj)
	}
	return records, nil
}

func checkColumns(table Table, cfg Config) error {
	for _, col := range cfg.SourceColumns() {
		if table.columnIndex(col) < 0 {
			return fmt.Errorf("%w: %q", ErrColumnMissing, col)
		}
	}
	return nil
}

func missingRequired(cfg Config, cell func(string) string) (bool, []string) {
	var missing []string
	for _, col := range cfg.RequiredFields {
		if cell(col) == "" {
			missing = append(missing, col)
		}
	}
	return len(missing) > 0, missing
}

// buildExtra copies passthrough columns into an x-extra object and
// parses any geolocation passthrough into structured coordinates.
// Empty cells are always omitted.
func buildExtra(cfg Config, cell func(string) string) map[string]any {
	extra := map[string]any{}
	for _, col := range cfg.PassthroughColumns {
		val := cell(col)
		if val == "" {
			continue
		}
		extra[Slugify(col)] = normalizeValue(val)
	}

	// A "Geolocation (latitude, longitude)" style column additionally
	// yields structured floats; the original string is kept.
	for key, val := range extra {
		raw, ok := val.(string)
		if !ok || !isGeolocationKey(key) {
			continue
		}
		parts := strings.Split(raw, ",")
		if len(parts) != 2 {
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLat != nil || errLon != nil {
			continue
		}
		extra["geolocation"] = map[string]any{"lat": lat, "lon": lon}
	}
	return extra
}

func isGeolocationKey(key string) bool {
	return strings.Contains(key, "geolocation") &&
		strings.Contains(key, "latitude") &&
		strings.Contains(key, "longitude")
}

// sortedTargets gives a stable application order for map iteration.
func sortedTargets(mapping map[string]Rule) []string {
	targets := make([]string, 0, len(mapping))
	for t := range mapping {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// setDeep sets a value at a dot path, creating nested maps as needed.
// An intermediate non-map value is replaced by a map.
func setDeep(obj Record, path string, value any) {
	keys := strings.Split(path, ".")
	cur := map[string]any(obj)
	for _, k := range keys[:len(keys)-1] {
		next, ok := cur[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[k] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

// Slugify lowercases alphanumerics and turns every other character
// into a dash, trimming leading and trailing dashes.
func Slugify(key string) string {
	var b strings.Builder
	for _, ch := range key {
		switch {
		case ch >= 'a' && ch <= 'z' || ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		case ch >= 'A' && ch <= 'Z':
			b.WriteRune(ch - 'A' + 'a')
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// normalizeValue trims a cell and rewrites recognizable spreadsheet
// datetimes as RFC 3339 strings.
func normalizeValue(val string) any {
	val = strings.TrimSpace(val)
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, val); err == nil {
			return ts.Format(time.RFC3339)
		}
	}
	return val
}
