// Package split buckets numeric values into strata and draws stratified train/test splits.
package split

import (
	"fmt"
	"math"
	"sort"
)

// IncomeBins are the bucket edges used to stratify median income.
var IncomeBins = []float64{0.0, 1.5, 3.0, 4.5, 6.0, math.Inf(1)}

// IncomeLabels name the buckets delimited by IncomeBins.
var IncomeLabels = []string{"1", "2", "3", "4", "5"}

// OutOfRangeError is returned when a value falls outside every bin.
type OutOfRangeError struct {
	Row   int
	Value float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("row %d: value %v is outside the stratification bins", e.Row, e.Value)
}

// Cut assigns each value the label of the bin that contains it.
// Bins are right-closed, (bins[i], bins[i+1]], except that the lowest edge
// itself belongs to the first bin.
func Cut(values []float64, bins []float64, labels []string) ([]string, error) {
	if len(bins) < 2 {
		return nil, fmt.Errorf("need at least two bin edges, got %d", len(bins))
	}
	if len(labels) != len(bins)-1 {
		return nil, fmt.Errorf("got %d labels for %d bins", len(labels), len(bins)-1)
	}
	for i := 1; i < len(bins); i++ {
		if !(bins[i] > bins[i-1]) {
			return nil, fmt.Errorf("bin edges must increase monotonically")
		}
	}

	edges := bins[1:]
	out := make([]string, len(values))
	for i, v := range values {
		if math.IsNaN(v) || v < bins[0] || v > edges[len(edges)-1] {
			return nil, &OutOfRangeError{Row: i, Value: v}
		}
		// First edge >= v is the right edge of v's bin.
		out[i] = labels[sort.SearchFloat64s(edges, v)]
	}
	return out, nil
}
