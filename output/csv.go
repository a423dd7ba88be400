// Package output writes extracted records as CSV.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/use-agent/pagecrawl/models"
)

// EncodeCSV writes a header row of fields followed by one row per record.
func EncodeCSV(w io.Writer, fields []string, records []models.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return fmt.Errorf("output: write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(r.Values(fields)); err != nil {
			return fmt.Errorf("output: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("output: flush: %w", err)
	}
	return nil
}

// WriteCSV creates or truncates path and encodes records into it.
func WriteCSV(path string, fields []string, records []models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	if err := EncodeCSV(f, fields, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("output: close %s: %w", path, err)
	}
	return nil
}
