package credits

import "strings"

// Plan identifiers sold through the payment gateway.
const (
	PlanStarter = "starter"
	PlanBasic   = "basic"
	PlanPro     = "pro"
	PlanMax     = "max"
)

// Plan maps a purchasable plan to the credits it grants and its price in
// minor currency units (INR paise). The catalog is static configuration;
// it is never mutated at runtime.
type Plan struct {
	ID      string `json:"id"`
	Credits int64  `json:"credits"`
	Price   int64  `json:"price"`
}

var planCatalog = map[string]Plan{
	PlanStarter: {ID: PlanStarter, Credits: 50, Price: 4900},
	PlanBasic:   {ID: PlanBasic, Credits: 200, Price: 19900},
	PlanPro:     {ID: PlanPro, Credits: 500, Price: 44900},
	PlanMax:     {ID: PlanMax, Credits: 1200, Price: 99900},
}

// PlanCurrency is the settlement currency for all catalog plans.
const PlanCurrency = "INR"

// DefaultFreeCredits is the ledger balance seeded at account creation.
const DefaultFreeCredits int64 = 25

// operationCosts is the static cost table. build_export stays in the table
// at cost 0 so a future price change needs no caller changes.
var operationCosts = map[Operation]int64{
	OperationAnalysis:            5,
	OperationOptimizationGeneral: 10,
	OperationOptimizationJD:      15,
	OperationBuildExport:         0,
}

// LookupPlan resolves a plan identifier from the catalog.
func LookupPlan(id string) (Plan, bool) {
	p, ok := planCatalog[normalizePlanID(id)]
	return p, ok
}

// Plans returns the catalog in a stable order for listing endpoints.
func Plans() []Plan {
	return []Plan{
		planCatalog[PlanStarter],
		planCatalog[PlanBasic],
		planCatalog[PlanPro],
		planCatalog[PlanMax],
	}
}

// OperationCost returns the credit cost for an operation.
func OperationCost(op Operation) (int64, bool) {
	cost, ok := operationCosts[op]
	return cost, ok
}

// IsStarterPlan reports whether the plan is the one-time starter offer.
func IsStarterPlan(id string) bool {
	return normalizePlanID(id) == PlanStarter
}

func normalizePlanID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
