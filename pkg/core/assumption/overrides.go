package assumption

import "fmt"

// Overrides are user-supplied values applied after derivation. A nil field
// leaves the derived value in place.
type Overrides struct {
	StartingRevenue *float64 `json:"starting_revenue,omitempty" yaml:"starting_revenue,omitempty"`
	RevenueGrowth   *float64 `json:"revenue_growth,omitempty" yaml:"revenue_growth,omitempty"`
	Margin          *float64 `json:"margin,omitempty" yaml:"margin,omitempty"`
	Debt            *float64 `json:"debt,omitempty" yaml:"debt,omitempty"`
	InterestRate    *float64 `json:"interest_rate,omitempty" yaml:"interest_rate,omitempty"`
	DiscountRate    *float64 `json:"discount_rate,omitempty" yaml:"discount_rate,omitempty"`
	ExitMultiple    *float64 `json:"exit_multiple,omitempty" yaml:"exit_multiple,omitempty"`
}

func (o Overrides) entries() []struct {
	key Key
	val *float64
} {
	return []struct {
		key Key
		val *float64
	}{
		{KeyStartingRevenue, o.StartingRevenue},
		{KeyRevenueGrowth, o.RevenueGrowth},
		{KeyMargin, o.Margin},
		{KeyDebt, o.Debt},
		{KeyInterestRate, o.InterestRate},
		{KeyDiscountRate, o.DiscountRate},
		{KeyExitMultiple, o.ExitMultiple},
	}
}

// IsEmpty reports whether no override is set.
func (o Overrides) IsEmpty() bool {
	for _, e := range o.entries() {
		if e.val != nil {
			return false
		}
	}
	return true
}

// Merge returns o with every field set in other taking precedence.
func (o Overrides) Merge(other Overrides) Overrides {
	pick := func(a, b *float64) *float64 {
		if b != nil {
			return b
		}
		return a
	}
	return Overrides{
		StartingRevenue: pick(o.StartingRevenue, other.StartingRevenue),
		RevenueGrowth:   pick(o.RevenueGrowth, other.RevenueGrowth),
		Margin:          pick(o.Margin, other.Margin),
		Debt:            pick(o.Debt, other.Debt),
		InterestRate:    pick(o.InterestRate, other.InterestRate),
		DiscountRate:    pick(o.DiscountRate, other.DiscountRate),
		ExitMultiple:    pick(o.ExitMultiple, other.ExitMultiple),
	}
}

// Apply returns a copy of a with the overrides written over it, then
// validates the result.
func (a *AssumptionSet) Apply(o Overrides) (*AssumptionSet, error) {
	out := a.Clone()
	for _, e := range o.entries() {
		if e.val == nil {
			continue
		}
		if err := out.Set(e.key, *e.val, SourceOverride); err != nil {
			return nil, err
		}
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("applying overrides: %w", err)
	}
	return out, nil
}

// Float is a helper for building Overrides literals.
func Float(v float64) *float64 { return &v }
