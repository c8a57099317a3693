package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/smukkama/store-monitor/internal/report"
)

// Format selects the artifact encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" (the default when empty) or "xlsx"
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown report format %q", value)
	}
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Encode writes the header row and one row per record
func (f Format) Encode(w io.Writer, records []report.Record) error {
	if f == FormatXLSX {
		return WriteXLSX(w, records)
	}
	return WriteCSV(w, records)
}

// FileWriter stores report artifacts as files under a directory
type FileWriter struct {
	dir    string
	format Format
}

// NewFileWriter creates the directory if needed
func NewFileWriter(dir string, format Format) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}
	return &FileWriter{dir: dir, format: format}, nil
}

// Format returns the encoding used for new artifacts
func (fw *FileWriter) Format() Format {
	return fw.format
}

// Path returns where the artifact of reportID is stored
func (fw *FileWriter) Path(reportID string) string {
	return filepath.Join(fw.dir, reportID+"."+string(fw.format))
}

// Write encodes the records and returns the artifact path. The file appears
// under its final name only once fully written.
func (fw *FileWriter) Write(ctx context.Context, reportID string, records []report.Record) (string, error) {
	if reportID == "" || strings.ContainsAny(reportID, `/\`) || strings.Contains(reportID, "..") {
		return "", fmt.Errorf("invalid report id %q", reportID)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(fw.dir, reportID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fw.format.Encode(tmp, records); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}

	path := fw.Path(reportID)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to publish artifact: %w", err)
	}
	return path, nil
}

// ContentTypeFor guesses the MIME type from an artifact path
func ContentTypeFor(path string) string {
	if strings.HasSuffix(path, "."+string(FormatXLSX)) {
		return FormatXLSX.ContentType()
	}
	return FormatCSV.ContentType()
}
