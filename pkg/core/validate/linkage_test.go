package validate

import (
	"testing"

	"financial_model/pkg/core/assumption"
	"financial_model/pkg/core/projection"
)

func projected(t *testing.T, years int) *projection.Statements {
	t.Helper()
	a := assumption.Defaults()
	a.Debt = 250_000
	st, err := projection.Project(a, years)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	return st
}

func TestCheckStatements_ProjectionIsLinked(t *testing.T) {
	report := CheckStatements(projected(t, 5), DefaultTolerance)
	if !report.AllPassed {
		t.Fatalf("expected all checks to pass, failures: %v", report.Failures())
	}
	if len(report.Years) != 5 {
		t.Fatalf("expected 5 yearly reports, got %d", len(report.Years))
	}
	for _, y := range report.Years {
		if y.Income == nil || y.Cash == nil || y.Balance == nil {
			t.Fatalf("year %d missing a check", y.Year)
		}
	}
	if report.Years[0].Cash.PriorAssets != 0 {
		t.Errorf("year 1 prior assets should be 0, got %.2f", report.Years[0].Cash.PriorAssets)
	}
}

func TestCheckStatements_DetectsBrokenIdentities(t *testing.T) {
	st := projected(t, 3)
	st.Rows[1].Equity += 10  // balance
	st.Rows[2].Assets += 500 // roll-forward of year 3 (and equity of year 3)

	report := CheckStatements(st, DefaultTolerance)
	if report.AllPassed {
		t.Fatal("expected failures")
	}

	failures := report.Failures()
	t.Logf("failures: %v", failures)

	if report.Years[0].AllPassed != true {
		t.Error("year 1 should pass")
	}
	if report.Years[1].Balance.IsLinked {
		t.Error("year 2 balance check should fail")
	}
	if report.Years[2].Cash.IsLinked {
		t.Error("year 3 cash roll-forward should fail")
	}
	if report.Years[2].Cash.DifferenceRoll != 500 {
		t.Errorf("expected roll-forward difference 500, got %.2f", report.Years[2].Cash.DifferenceRoll)
	}
	if len(failures) != 3 {
		t.Errorf("expected 3 failures, got %d", len(failures))
	}
}

func TestCheckYear_ProfitMismatch(t *testing.T) {
	row := projection.Row{Year: 1, Revenue: 100, Cost: 40, Profit: 61, CashFlow: 61, CumulativeCash: 61, Assets: 61, Equity: 61}
	y := CheckYear(row, 0, 0.5)
	if y.Income.IsLinked {
		t.Error("profit mismatch of 1 should fail at tolerance 0.5")
	}
	if !y.Cash.IsLinked || !y.Balance.IsLinked {
		t.Error("cash and balance checks should pass")
	}
	if y := CheckYear(row, 0, 1.0); !y.AllPassed {
		t.Errorf("mismatch within tolerance should pass: %v", y.FailedChecks)
	}
}

func TestCheckStatements_Nil(t *testing.T) {
	if r := CheckStatements(nil, DefaultTolerance); !r.AllPassed || len(r.Years) != 0 {
		t.Error("nil statements should yield an empty passing report")
	}
}
