package overrides

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/text/cases"

	"provmap/internal/logging"
)

const (
	keywordColumn = "island_name"
	countryColumn = "admin0"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("override table missing required column")

// Entry maps a province-name keyword to a country.
type Entry struct {
	Keyword string
	Country string
	// Line is the 1-based CSV line the entry came from.
	Line int
}

// Table is an ordered list of override entries.
type Table struct {
	Path    string
	Entries []Entry

	folded []string
}

// Load reads the table at path. A missing file yields an empty table and an
// info log line; malformed content is an error.
func Load(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "overrides")

	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return &Table{}, nil
	}
	data, err := os.ReadFile(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("override table not found, continuing without manual overrides",
				logging.String(logging.FieldPath, trimmed))
			return &Table{Path: trimmed}, nil
		}
		return nil, fmt.Errorf("read override table: %w", err)
	}

	table, skipped, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", trimmed, err)
	}
	table.Path = trimmed
	for _, line := range skipped {
		logger.Warn("skipping override row with empty keyword or country",
			logging.String(logging.FieldPath, trimmed),
			logging.Int("line", line))
	}
	logger.Info("loaded override table",
		logging.String(logging.FieldPath, trimmed),
		logging.Int("count", len(table.Entries)))
	return table, nil
}

// Parse decodes CSV content. It returns the table plus the line numbers of
// rows skipped for an empty keyword or country.
func Parse(r io.Reader) (*Table, []int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, keywordColumn)
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	keyIdx, countryIdx := -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch name {
		case keywordColumn:
			keyIdx = i
		case countryColumn:
			countryIdx = i
		}
	}
	if keyIdx < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, keywordColumn)
	}
	if countryIdx < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, countryColumn)
	}

	table := &Table{}
	var skipped []int
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		keyword := strings.ToLower(strings.TrimSpace(field(row, keyIdx)))
		country := strings.TrimSpace(field(row, countryIdx))
		if keyword == "" || country == "" {
			skipped = append(skipped, line)
			continue
		}
		table.add(Entry{Keyword: keyword, Country: country, Line: line})
	}
	return table, skipped, nil
}

// New builds a table from entries, keeping their order.
func New(entries ...Entry) *Table {
	table := &Table{}
	for _, entry := range entries {
		entry.Keyword = strings.ToLower(strings.TrimSpace(entry.Keyword))
		entry.Country = strings.TrimSpace(entry.Country)
		if entry.Keyword == "" || entry.Country == "" {
			continue
		}
		table.add(entry)
	}
	return table
}

func (t *Table) add(entry Entry) {
	t.Entries = append(t.Entries, entry)
	t.folded = append(t.folded, fold(entry.Keyword))
}

// Len reports the number of usable entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Entries)
}

// Match returns the first entry whose keyword occurs in name, compared
// case-insensitively. Keywords are literal text, not patterns.
func (t *Table) Match(name string) (Entry, bool) {
	if t.Len() == 0 {
		return Entry{}, false
	}
	target := fold(name)
	for i, keyword := range t.folded {
		if strings.Contains(target, keyword) {
			return t.Entries[i], true
		}
	}
	return Entry{}, false
}

func fold(s string) string {
	return cases.Fold().String(s)
}

func field(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
