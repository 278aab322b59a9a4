package query

import "math"

func computeAggregations(rows []map[string]interface{}, aggs []Aggregation) map[string]interface{} {
	results := make(map[string]interface{}, len(aggs))
	for _, agg := range aggs {
		results[agg.Alias] = evaluateAggregate(agg, rows)
	}
	return results
}

// evaluateAggregate computes one aggregation. COUNT counts rows, not
// values; COUNT_DISTINCT counts distinct non-nil values. The numeric
// aggregations skip non-numeric values and yield 0.0 when none remain.
func evaluateAggregate(agg Aggregation, rows []map[string]interface{}) interface{} {
	switch agg.Type {
	case AggCount:
		return int64(len(rows))

	case AggCountDistinct:
		seen := make(map[string]struct{})
		for _, row := range rows {
			if v := row[agg.Field]; v != nil {
				seen[distinctKey(v)] = struct{}{}
			}
		}
		return int64(len(seen))
	}

	var (
		sum   float64
		count int
		lo    = math.Inf(1)
		hi    = math.Inf(-1)
	)
	for _, row := range rows {
		f, ok := toFloat64(row[agg.Field])
		if !ok {
			continue
		}
		sum += f
		count++
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}

	switch agg.Type {
	case AggSum:
		return sum
	case AggAvg:
		if count == 0 {
			return 0.0
		}
		return sum / float64(count)
	case AggMin:
		if count == 0 {
			return 0.0
		}
		return lo
	case AggMax:
		if count == 0 {
			return 0.0
		}
		return hi
	default:
		return nil
	}
}
