package budget

import (
	"errors"
	"testing"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/gwerrors"
)

func TestAdmit_DeniesOverLimit(t *testing.T) {
	e := New(nil)
	e.Register(Config{BudgetID: "global", Total: 1.00, Period: Daily})
	e.Record(nil, 0.99)

	err := e.Admit(nil, 0.02)
	if err == nil {
		t.Fatal("expected BudgetExceeded")
	}
	var gerr *gwerrors.Error
	if !errors.As(err, &gerr) || gerr.Kind != gwerrors.BudgetExceeded {
		t.Fatalf("expected BudgetExceeded kind, got %v", err)
	}
	if gerr.Details["current_usage"] != 0.99 {
		t.Fatalf("expected current_usage=0.99 in details, got %v", gerr.Details)
	}
}

func TestAdmit_AllowsUnderLimit(t *testing.T) {
	e := New(nil)
	e.Register(Config{BudgetID: "global", Total: 1.00, Period: Daily})
	if err := e.Admit(nil, 0.50); err != nil {
		t.Fatalf("expected admit, got %v", err)
	}
}

func TestApplicable_MostSpecificGroupWins(t *testing.T) {
	e := New(nil)
	e.Register(Config{BudgetID: "global", Total: 100, Period: Monthly})
	e.Register(Config{BudgetID: "team", Total: 10, Period: Monthly, Groups: []string{"eng"}})
	e.Register(Config{BudgetID: "subteam", Total: 1, Period: Monthly, Groups: []string{"eng", "infra"}})

	// user in both groups should hit the most specific (largest matching
	// group list), not just the first non-global match.
	err := e.Admit([]string{"eng", "infra"}, 2)
	if err == nil {
		t.Fatal("expected subteam budget (limit 1) to deny a cost of 2")
	}
}

func TestRecord_AlertFiresOnceAtThreshold(t *testing.T) {
	var alerts []Alert
	e := New(func(a Alert) { alerts = append(alerts, a) })
	e.Register(Config{BudgetID: "global", Total: 10, Period: Daily, AlertThresholds: []float64{0.8}})

	e.Record(nil, 7)
	if len(alerts) != 0 {
		t.Fatalf("expected no alert yet, got %d", len(alerts))
	}
	e.Record(nil, 2) // 9/10 = 0.9 >= 0.8
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	e.Record(nil, 0.5) // still above 0.8, must not re-fire
	if len(alerts) != 1 {
		t.Fatalf("expected alert to fire only once, got %d", len(alerts))
	}
}

func TestAdmit_AutoDisableAtLimit(t *testing.T) {
	e := New(nil)
	e.Register(Config{BudgetID: "global", Total: 10, Period: Daily, AutoDisableAtLimit: true})
	e.Record(nil, 10)

	if err := e.Admit(nil, 0.0); err == nil {
		t.Fatal("expected auto-disabled budget to deny further requests even at zero cost")
	}
}

func TestResetExpired_ZeroesUsageAndAdvancesPeriod(t *testing.T) {
	e := New(nil)
	e.Register(Config{BudgetID: "global", Total: 10, Period: Daily})
	e.Record(nil, 5)

	future := time.Now().Add(25 * time.Hour)
	e.ResetExpired(future)

	usage, ok := e.GlobalStatus()
	if !ok {
		t.Fatal("expected global budget to exist")
	}
	if usage.CurrentUsage != 0 {
		t.Fatalf("expected usage reset to 0, got %f", usage.CurrentUsage)
	}
	if usage.Status != StatusActive {
		t.Fatalf("expected status active after reset, got %s", usage.Status)
	}
}

func TestAdmit_BoundaryAtExactlyTotal(t *testing.T) {
	e := New(nil)
	e.Register(Config{BudgetID: "global", Total: 1.00, Period: Daily})
	e.Record(nil, 0.99999)
	if err := e.Admit(nil, 0.00101); err == nil {
		t.Fatal("expected denial crossing 100.001% of limit")
	}
}
