package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/tenderscan/internal/model"
)

// CSV column names, in file order.
const (
	ColumnTitle     = "title"
	ColumnAuthority = "authority"
	ColumnDate      = "date"
	ColumnURL       = "url"
)

// CSVHeader is the header row of every per-year file.
var CSVHeader = []string{ColumnTitle, ColumnAuthority, ColumnDate, ColumnURL}

const (
	outputDirPerm  = 0750
	outputFilePerm = 0600
)

// CSVWriter writes TenderRecords as CSV. The header is always written,
// so a year without results still produces a valid file.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the header and one row per record. It returns the number
// of data rows written.
func (w *CSVWriter) Write(records []model.TenderRecord) (int, error) {
	cw := csv.NewWriter(w.output)
	if err := cw.Write(CSVHeader); err != nil {
		return 0, err
	}
	for i, r := range records {
		if err := cw.Write([]string{r.Title, r.Authority, r.DateString(), r.URL}); err != nil {
			return i, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, err
	}
	return len(records), nil
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_")

// YearFileName returns the per-year file name, e.g. "台灣電力_088.csv".
// Path separators in query are replaced with underscores.
func YearFileName(query string, year int) string {
	return fmt.Sprintf("%s_%03d.csv", fileNameReplacer.Replace(query), year)
}

// WriteYearFile writes records for (query, year) under dir and returns the path.
// dir is created if needed.
func WriteYearFile(dir, query string, year int, records []model.TenderRecord) (path string, err error) {
	if err := os.MkdirAll(dir, outputDirPerm); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path = filepath.Join(dir, YearFileName(query, year))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFilePerm) //nolint:gosec // path is built from the output dir and query
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := NewCSVWriter(f).Write(records); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
