// Package validate provides reusable checks on historical series and
// projected statements. The check command, the API and the tests call
// these to confirm data integrity and to summarise history.
package validate

import (
	"fmt"
	"math"

	"financial_model/pkg/core/historical"
)

// =============================================================================
// YEAR-OVER-YEAR (YoY) CALCULATIONS
// =============================================================================

// YoYResult holds the result of a YoY calculation between two periods.
type YoYResult struct {
	Period    int     `json:"period"` // 1-based index of the current observation
	Current   float64 `json:"current"`
	Prior     float64 `json:"prior"`
	ChangeAbs float64 `json:"change_abs"`
	ChangePct float64 `json:"change_pct"`
	Label     string  `json:"label"`
}

// CalculateYoY calculates year-over-year change between two values.
// Returns percentage change: (current - prior) / prior * 100
func CalculateYoY(current, prior float64) float64 {
	if prior == 0 {
		if current == 0 {
			return 0
		}
		return math.Inf(1) // Infinite growth from zero
	}
	return (current - prior) / prior * 100
}

// SeriesYoY computes YoY between consecutive present observations of s.
// Absent cells are skipped, so periods refer to positions in s.
func SeriesYoY(label historical.Label, s historical.Series) []YoYResult {
	var out []YoYResult
	prevIdx := -1
	for i, v := range s {
		if v == nil {
			continue
		}
		if prevIdx >= 0 {
			prior := *s[prevIdx]
			out = append(out, YoYResult{
				Period:    i + 1,
				Current:   *v,
				Prior:     prior,
				ChangeAbs: *v - prior,
				ChangePct: CalculateYoY(*v, prior),
				Label:     string(label),
			})
		}
		prevIdx = i
	}
	return out
}

// =============================================================================
// CAGR (Compound Annual Growth Rate)
// =============================================================================

// CAGRResult holds the result of a CAGR calculation.
type CAGRResult struct {
	StartValue float64 `json:"start_value"`
	EndValue   float64 `json:"end_value"`
	Years      int     `json:"years"`
	CAGR       float64 `json:"cagr"` // As percentage
}

// CalculateCAGR calculates compound annual growth rate.
// CAGR = ((EndValue / StartValue) ^ (1/years)) - 1
func CalculateCAGR(startValue, endValue float64, years int) float64 {
	if startValue <= 0 || years <= 0 {
		return 0
	}
	return (math.Pow(endValue/startValue, 1.0/float64(years)) - 1) * 100
}

// SeriesCAGR computes the CAGR from the first to the last present value of s,
// spanning the positions between them.
func SeriesCAGR(s historical.Series) (*CAGRResult, error) {
	first, last := -1, -1
	for i, v := range s {
		if v == nil {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}
	if first < 0 || first == last {
		return nil, fmt.Errorf("need at least two observations, got %d", len(s.Present()))
	}
	years := last - first
	return &CAGRResult{
		StartValue: *s[first],
		EndValue:   *s[last],
		Years:      years,
		CAGR:       CalculateCAGR(*s[first], *s[last], years),
	}, nil
}

// =============================================================================
// OUTLIER DETECTION
// =============================================================================

// OutlierCheck identifies suspicious values.
type OutlierCheck struct {
	Item       string  `json:"item"`
	Period     int     `json:"period"`
	Value      float64 `json:"value"`
	PriorValue float64 `json:"prior_value"`
	ChangePct  float64 `json:"change_pct"`
	IsOutlier  bool    `json:"is_outlier"`
	Reason     string  `json:"reason,omitempty"`
	Threshold  float64 `json:"threshold"`
}

// CheckForOutlier identifies if a value change is suspicious.
func CheckForOutlier(item string, current, prior, thresholdPct float64) *OutlierCheck {
	changePct := CalculateYoY(current, prior)

	check := &OutlierCheck{
		Item:       item,
		Value:      current,
		PriorValue: prior,
		ChangePct:  changePct,
		Threshold:  thresholdPct,
	}

	// Zero after a non-zero prior usually means a missed cell.
	if current == 0 && prior != 0 {
		check.IsOutlier = true
		check.Reason = "value dropped to zero"
		return check
	}

	if math.Abs(changePct) > thresholdPct {
		check.IsOutlier = true
		check.Reason = fmt.Sprintf("change of %.1f%% exceeds threshold of %.1f%%", changePct, thresholdPct)
	}
	return check
}

// ScanOutliers runs CheckForOutlier over every label in h and returns only
// the flagged observations, in label order.
func ScanOutliers(h historical.Set, thresholdPct float64) []OutlierCheck {
	var out []OutlierCheck
	for _, label := range historical.Labels {
		for _, y := range SeriesYoY(label, h.Get(label)) {
			c := CheckForOutlier(string(label), y.Current, y.Prior, thresholdPct)
			if c.IsOutlier {
				c.Period = y.Period
				out = append(out, *c)
			}
		}
	}
	return out
}
