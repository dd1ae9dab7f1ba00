package record

import "sort"

// SortRecords orders rows in place by keys, stable.  Numbers compare
// numerically, everything else by its string form.
func SortRecords(rows []Record, keys []Sort) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := compare(rows[i], rows[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Direction == Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(a, b Record, field string) int {
	av, aok := a.Fields[field].(float64)
	bv, bok := b.Fields[field].(float64)
	if aok && bok {
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	as, bs := a.String(field), b.String(field)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
