package projection_test

import (
	"testing"

	"financial_model/pkg/core/projection"
)

func TestGrowthStrategy(t *testing.T) {
	s := &projection.GrowthStrategy{Base: 100, GrowthRate: 0.05} // 5% growth

	first, err := s.Calculate(projection.Context{Year: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != 100.0 {
		t.Errorf("expected year-1 value 100.00, got %.2f", first)
	}

	result, err := s.Calculate(projection.Context{Year: 2, Prior: 100.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 105.0 {
		t.Errorf("expected %.2f, got %.2f", 105.0, result)
	}
}

func TestGrowthStrategy_ZeroBaseIsAllowed(t *testing.T) {
	s := &projection.GrowthStrategy{Base: 0, GrowthRate: 0.1}
	v, err := s.Calculate(projection.Context{Year: 3, Prior: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 0 {
		t.Errorf("expected 0, got %.2f", v)
	}
}

func TestGrowthStrategy_InvalidYear(t *testing.T) {
	s := &projection.GrowthStrategy{Base: 100}
	if _, err := s.Calculate(projection.Context{Year: 0}); err == nil {
		t.Fatal("expected error for year 0, got nil")
	}
}

func TestMarginStrategy(t *testing.T) {
	s := &projection.MarginStrategy{Margin: 0.40, BaseLine: "revenue"}

	result, err := s.Calculate(projection.Context{
		Year:  1,
		Lines: map[string]float64{"revenue": 1000.0},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 400.0 {
		t.Errorf("expected 400.00, got %.2f", result)
	}
}

func TestMarginStrategy_MissingBase(t *testing.T) {
	s := &projection.MarginStrategy{Margin: 0.40, BaseLine: "revenue"}
	if _, err := s.Calculate(projection.Context{Year: 1}); err == nil {
		t.Fatal("expected error for missing base line, got nil")
	}
}

func TestConstantStrategy(t *testing.T) {
	s := &projection.ConstantStrategy{Value: 250}
	v, _ := s.Calculate(projection.Context{Year: 7, Prior: 1})
	if v != 250 {
		t.Errorf("expected 250, got %.2f", v)
	}
}
