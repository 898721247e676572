package credits

import "testing"

func TestLookupPlan(t *testing.T) {
	tests := []struct {
		in          string
		wantCredits int64
		wantOK      bool
	}{
		{in: "starter", wantCredits: 50, wantOK: true},
		{in: "basic", wantCredits: 200, wantOK: true},
		{in: "PRO", wantCredits: 500, wantOK: true},
		{in: " max ", wantCredits: 1200, wantOK: true},
		{in: "enterprise", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		p, ok := LookupPlan(tt.in)
		if ok != tt.wantOK {
			t.Fatalf("LookupPlan(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
		}
		if ok && p.Credits != tt.wantCredits {
			t.Fatalf("LookupPlan(%q) credits = %d, want %d", tt.in, p.Credits, tt.wantCredits)
		}
	}
}

func TestOperationCost(t *testing.T) {
	tests := []struct {
		op   Operation
		want int64
	}{
		{op: OperationAnalysis, want: 5},
		{op: OperationOptimizationGeneral, want: 10},
		{op: OperationOptimizationJD, want: 15},
		{op: OperationBuildExport, want: 0},
	}

	for _, tt := range tests {
		cost, ok := OperationCost(tt.op)
		if !ok {
			t.Fatalf("OperationCost(%q) not found", tt.op)
		}
		if cost != tt.want {
			t.Fatalf("OperationCost(%q) = %d, want %d", tt.op, cost, tt.want)
		}
	}

	if _, ok := OperationCost(Operation("unknown")); ok {
		t.Fatalf("expected unknown operation to be absent from the cost table")
	}
}

func TestPlansOrderingStable(t *testing.T) {
	plans := Plans()
	if len(plans) != 4 {
		t.Fatalf("expected 4 plans, got %d", len(plans))
	}
	want := []string{PlanStarter, PlanBasic, PlanPro, PlanMax}
	for i, p := range plans {
		if p.ID != want[i] {
			t.Fatalf("plans[%d] = %q, want %q", i, p.ID, want[i])
		}
	}
}

func TestIsStarterPlan(t *testing.T) {
	if !IsStarterPlan("starter") || !IsStarterPlan(" Starter ") {
		t.Fatalf("expected starter variants to match")
	}
	if IsStarterPlan("basic") {
		t.Fatalf("expected basic to not be the starter plan")
	}
}
