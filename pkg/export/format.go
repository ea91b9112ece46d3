package export

import (
	"fmt"
	"strings"
)

// Format is an export file type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts csv or pdf, case-insensitively. Empty input defaults to csv.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Filename builds a download name from a base that may contain unsafe characters.
func (f Format) Filename(base string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	name := replacer.Replace(strings.TrimSpace(base))
	if name == "" {
		name = "export"
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return name + "." + string(f)
}

// Dataset is ordered tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) > len(d.Headers) {
			return fmt.Errorf("row %d has %d cells for %d headers", i, len(row), len(d.Headers))
		}
	}
	return nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
