package filter

import "testing"

func TestNewExpression_Valid(t *testing.T) {
	cond, err := NewMatch("source", "wiki")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}

	expr, err := NewExpression([]Condition{cond}, nil)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}
	if len(expr.Must()) != 1 || len(expr.MustNot()) != 0 {
		t.Errorf("unexpected expression: must=%d mustNot=%d", len(expr.Must()), len(expr.MustNot()))
	}
	if expr.IsEmpty() {
		t.Error("expression with conditions must not be empty")
	}
}

func TestNewExpression_TooManyConditions(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		conds[i], _ = NewMatch("source", "wiki")
	}

	if _, err := NewExpression(conds, nil); err == nil {
		t.Error("expected error for too many must conditions")
	}
	if _, err := NewExpression(nil, conds); err == nil {
		t.Error("expected error for too many must_not conditions")
	}
}

func TestExpression_IsEmpty(t *testing.T) {
	if !(Expression{}).IsEmpty() {
		t.Error("zero expression must be empty")
	}
}

func TestMustMatch(t *testing.T) {
	expr, err := MustMatch("source", "faq")
	if err != nil {
		t.Fatalf("MustMatch: %v", err)
	}

	must := expr.Must()
	if len(must) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(must))
	}
	if must[0].Key() != "source" || must[0].Match() != "faq" {
		t.Errorf("unexpected condition: %q=%q", must[0].Key(), must[0].Match())
	}
}

func TestMustMatch_InvalidInput(t *testing.T) {
	if _, err := MustMatch("", "faq"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := MustMatch("source", ""); err == nil {
		t.Error("expected error for empty value")
	}
}

func TestNewMatch(t *testing.T) {
	cond, err := NewMatch("source", "wiki")
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	if !cond.IsMatch() || cond.IsRange() {
		t.Error("expected a match condition")
	}
}

func TestNewRange(t *testing.T) {
	gte := 1.0
	rng, err := NewRangeFilter(nil, &gte, nil, nil)
	if err != nil {
		t.Fatalf("NewRangeFilter: %v", err)
	}

	cond, err := NewRange("priority", rng)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	if !cond.IsRange() || cond.IsMatch() {
		t.Error("expected a range condition")
	}
	if cond.Range().GTE() == nil || *cond.Range().GTE() != 1.0 {
		t.Error("expected gte bound to survive")
	}

	if _, err := NewRange("", rng); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestNewRangeFilter_Validation(t *testing.T) {
	v := 1.0

	if _, err := NewRangeFilter(nil, nil, nil, nil); err == nil {
		t.Error("expected error when no boundary is set")
	}
	if _, err := NewRangeFilter(&v, &v, nil, nil); err == nil {
		t.Error("expected error for gt and gte together")
	}
	if _, err := NewRangeFilter(nil, nil, &v, &v); err == nil {
		t.Error("expected error for lt and lte together")
	}
	if _, err := NewRangeFilter(&v, nil, nil, &v); err != nil {
		t.Errorf("gt with lte must be allowed: %v", err)
	}
}
