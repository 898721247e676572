package counter

import (
	"context"
	"strconv"

	"github.com/ManuelReschke/ResumeFox/internal/pkg/cache"
)

const (
	admissionsKey  = "credits:counters:admissions"
	denialsKey     = "credits:counters:denials"
	settlementsKey = "credits:counters:settlements"
)

// AddAdmission increments the admitted-operation counter in Redis
func AddAdmission(operation string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, admissionsKey, operation, 1).Err()
}

// AddDenial increments the denied-operation counter in Redis
func AddDenial(operation string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, denialsKey, operation, 1).Err()
}

// AddSettlement increments the settlement counter for an outcome (settled, ignored, failed)
func AddSettlement(outcome string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, settlementsKey, outcome, 1).Err()
}

// Totals holds a point-in-time snapshot of all counters
type Totals struct {
	Admissions  map[string]int64 `json:"admissions"`
	Denials     map[string]int64 `json:"denials"`
	Settlements map[string]int64 `json:"settlements"`
}

// Snapshot reads all counter hashes. Counters are operational metrics only;
// the durable usage record lives in the usage_events table.
func Snapshot() (*Totals, error) {
	ctx := context.Background()

	totals := &Totals{}
	var err error
	if totals.Admissions, err = readHash(ctx, admissionsKey); err != nil {
		return nil, err
	}
	if totals.Denials, err = readHash(ctx, denialsKey); err != nil {
		return nil, err
	}
	if totals.Settlements, err = readHash(ctx, settlementsKey); err != nil {
		return nil, err
	}
	return totals, nil
}

func readHash(ctx context.Context, key string) (map[string]int64, error) {
	data, err := cache.GetClient().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for field, raw := range data {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}
