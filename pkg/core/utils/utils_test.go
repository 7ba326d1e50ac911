package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type overrideDoc struct {
	DiscountRate float64 `json:"discount_rate"`
	ExitMultiple float64 `json:"exit_multiple"`
}

func TestSmartParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"strict json", `{"discount_rate": 0.12, "exit_multiple": 6}`},
		{"trailing comma", `{"discount_rate": 0.12, "exit_multiple": 6,}`},
		{"single quotes", `{'discount_rate': 0.12, 'exit_multiple': 6}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc overrideDoc
			_, err := SmartParse(tt.input, &doc)
			require.NoError(t, err)
			assert.Equal(t, 0.12, doc.DiscountRate)
			assert.Equal(t, 6.0, doc.ExitMultiple)
		})
	}
}

func TestParseHJSON(t *testing.T) {
	out, err := ParseHJSON("{\n  # cost of capital\n  discount_rate: 0.12\n  exit_multiple: 6\n}")
	require.NoError(t, err)
	assert.JSONEq(t, `{"discount_rate":0.12,"exit_multiple":6}`, out)

	_, err = ParseHJSON("{ unbalanced")
	assert.Error(t, err)
}

func TestMarkdownTable(t *testing.T) {
	table := MarkdownTable([]string{"Year", "Revenue"}, [][]string{{"1", "1,000"}, {"2"}})
	lines := strings.Split(strings.TrimSpace(table), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "| Year | Revenue |", lines[0])
	assert.Equal(t, "| --- | --- |", lines[1])
	assert.Equal(t, "| 2 |  |", lines[3])
	assert.Empty(t, MarkdownTable(nil, nil))
}

func TestRenderHTML_Table(t *testing.T) {
	html, err := RenderHTML("# Valuation\n\n" + MarkdownTable([]string{"A", "B"}, [][]string{{"1", "2"}}))
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Valuation</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>2</td>")
}
