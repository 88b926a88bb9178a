package record

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// File is a loaded CSV: the header in original order plus one Record per data
// row. Enrichment columns are appended to the header only when absent, so
// re-running a pipeline on its own output keeps the column order stable.
type File struct {
	Header []string
	Rows   []Record
}

// Load reads a CSV file into memory. A UTF-8 byte-order mark is stripped if
// present (the upstream exports are "utf-8-sig"). Rows shorter than the header
// are padded with empty values.
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "record: open csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(transform.NewReader(f, unicode.UTF8BOM.NewDecoder()))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "record: read csv")
	}
	if len(records) == 0 {
		return &File{}, nil
	}

	header := records[0]
	rows := make([]Record, 0, len(records)-1)
	for _, raw := range records[1:] {
		row := make(Record, len(header))
		for i, col := range header {
			if i < len(raw) {
				row[col] = raw[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return &File{Header: header, Rows: rows}, nil
}

// EnsureColumns appends each column to the header when not already present.
func (f *File) EnsureColumns(cols []string) {
	present := make(map[string]bool, len(f.Header))
	for _, col := range f.Header {
		present[col] = true
	}
	for _, col := range cols {
		if !present[col] {
			f.Header = append(f.Header, col)
			present[col] = true
		}
	}
}

// Save writes the file atomically: a temp file in the target directory is
// written with a UTF-8 BOM and renamed over the destination.
func (f *File) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "record: create output dir")
	}

	tmp, err := os.CreateTemp(dir, ".matchaddress-*.csv")
	if err != nil {
		return eris.Wrap(err, "record: create temp file")
	}
	tmpName := tmp.Name()

	bom := transform.NewWriter(tmp, unicode.UTF8BOM.NewEncoder())
	writer := csv.NewWriter(bom)

	writeErr := writer.Write(f.Header)
	if writeErr == nil {
		for _, row := range f.Rows {
			values := make([]string, len(f.Header))
			for i, col := range f.Header {
				values[i] = row[col]
			}
			if writeErr = writer.Write(values); writeErr != nil {
				break
			}
		}
	}
	if writeErr == nil {
		writer.Flush()
		writeErr = writer.Error()
	}
	if writeErr == nil {
		writeErr = bom.Close()
	}

	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(writeErr, "record: write csv")
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return eris.Wrap(err, "record: replace output file")
	}
	return nil
}
