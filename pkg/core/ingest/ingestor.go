// Package ingest reads historical statement rows from workbooks, CSV files,
// HTML tables and JSON documents, classifies them by caption and returns a
// historical.Set.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"financial_model/pkg/core/historical"
	"financial_model/pkg/logging"
)

// Format identifies an input encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// DetectFormat maps a file name or URL to a Format by extension.
func DetectFormat(name string) (Format, error) {
	if i := strings.IndexAny(name, "?#"); i >= 0 && isURL(name) {
		name = name[:i]
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported input %q (want .xlsx, .csv, .html or .json)", name)
}

// Result is the outcome of reading one source.
type Result struct {
	Source     string         `json:"source"`
	Format     Format         `json:"format"`
	Historical historical.Set `json:"historical"`
	// Matched lists the labels found, in display order.
	Matched []historical.Label `json:"matched"`
}

func newResult(source string, f Format, set historical.Set) *Result {
	r := &Result{Source: source, Format: f, Historical: set}
	for _, l := range historical.Labels {
		if _, ok := set[l]; ok {
			r.Matched = append(r.Matched, l)
		}
	}
	return r
}

// Loader reads sources with a classifier and logs what it finds.
type Loader struct {
	Classifier historical.Classifier
	Fetcher    *Fetcher
	Logger     logging.Logger
}

// NewLoader returns a Loader using the default caption rules.
func NewLoader(logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{
		Classifier: historical.DefaultClassifier(),
		Fetcher:    NewFetcher(""),
		Logger:     logger.Named("ingest"),
	}
}

// Load reads a local path or an http(s) URL.
func (l *Loader) Load(ctx context.Context, source string) (*Result, error) {
	format, err := DetectFormat(source)
	if err != nil {
		return nil, err
	}

	var data []byte
	if isURL(source) {
		data, err = l.Fetcher.Fetch(ctx, source)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}

	res, err := l.Read(bytes.NewReader(data), format)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", source, err)
	}
	res.Source = source

	l.Logger.Info("historical data loaded",
		logging.String("source", source),
		logging.String("format", string(format)),
		logging.Int("labels", len(res.Matched)))
	if len(res.Matched) == 0 {
		l.Logger.Warn("no recognised rows; all assumptions will use defaults", logging.String("source", source))
	}
	return res, nil
}

// Read decodes r as format.
func (l *Loader) Read(r io.Reader, format Format) (*Result, error) {
	var (
		set historical.Set
		err error
	)
	switch format {
	case FormatXLSX:
		set, err = ReadWorkbook(r, l.Classifier)
	case FormatCSV:
		set, err = ReadCSV(r, l.Classifier)
	case FormatHTML:
		set, err = ReadHTML(r, l.Classifier)
	case FormatJSON:
		set, err = ReadJSON(r)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return newResult("", format, set), nil
}

// Load reads source with a default Loader.
func Load(ctx context.Context, source string) (*Result, error) {
	return NewLoader(nil).Load(ctx, source)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
