package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"financial_model/pkg/core/historical"
	"financial_model/pkg/core/modelerr"
)

// ReadCSV reads a single captioned table. Rows may have different lengths.
func ReadCSV(r io.Reader, c historical.Classifier) (historical.Set, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return historical.Collect(c, "", rows, nil), nil
}

// ReadHTML reads every row of every <table>. The first cell is the caption.
// A table preceded by a heading naming one of the workbook sheets is
// classified with that sheet's rules.
func ReadHTML(r io.Reader, c historical.Classifier) (historical.Set, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	set := make(historical.Set)
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		historical.Collect(c, tableSheet(table), rows, set)
	})
	return set, nil
}

// tableSheet returns the sheet named by the table's caption or nearest
// preceding heading, or "" when none matches.
func tableSheet(table *goquery.Selection) string {
	title := strings.TrimSpace(table.Find("caption").First().Text())
	if title == "" {
		title = strings.TrimSpace(table.PrevAllFiltered("h1, h2, h3, h4").First().Text())
	}
	for _, s := range historical.Sheets {
		if strings.EqualFold(title, s) {
			return s
		}
	}
	return ""
}

// ReadJSON reads {"revenue": [1.0, null, "2,000"], ...}. Keys may be labels
// or their aliases.
func ReadJSON(r io.Reader) (historical.Set, error) {
	var raw map[string][]interface{}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, modelerr.MalformedInput("ingest", "decode json: %v", err)
	}
	return historical.FromRaw(raw)
}
