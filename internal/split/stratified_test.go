package split

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformIncomeLabels(t *testing.T, n int, seed int64) []string {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	values := make([]float64, n)
	for i := range values {
		values[i] = rng.Float64() * 10
	}
	labels, err := Cut(values, IncomeBins, IncomeLabels)
	require.NoError(t, err)
	return labels
}

func TestSplit_PartitionsAllRows(t *testing.T) {
	for _, n := range []int{50, 97, 1000, 20640} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			labels := uniformIncomeLabels(t, n, 42)

			train, test, err := NewStratifiedShuffleSplit().Split(labels)
			require.NoError(t, err)

			assert.Equal(t, n, len(train)+len(test))
			wantTest := int(math.Ceil(0.2 * float64(n)))
			assert.Equal(t, wantTest, len(test))

			seen := make(map[int]bool, n)
			for _, r := range append(append([]int{}, train...), test...) {
				require.False(t, seen[r], "row %d assigned twice", r)
				require.True(t, r >= 0 && r < n)
				seen[r] = true
			}
			assert.Len(t, seen, n)
		})
	}
}

func TestSplit_PreservesStrataProportions(t *testing.T) {
	labels := uniformIncomeLabels(t, 1000, 7)

	train, test, err := NewStratifiedShuffleSplit().Split(labels)
	require.NoError(t, err)

	all := CountByLabel(labels, allRows(len(labels)))
	trainCounts := CountByLabel(labels, train)
	testCounts := CountByLabel(labels, test)

	for label, total := range all {
		expectedTest := float64(total) * 0.2
		assert.InDelta(t, expectedTest, float64(testCounts[label]), 1.0, "stratum %s", label)
		assert.Equal(t, total, trainCounts[label]+testCounts[label], "stratum %s", label)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	labels := uniformIncomeLabels(t, 500, 3)
	splitter := NewStratifiedShuffleSplit()

	train1, test1, err := splitter.Split(labels)
	require.NoError(t, err)
	train2, test2, err := splitter.Split(labels)
	require.NoError(t, err)

	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	other := &StratifiedShuffleSplit{TestSize: DefaultTestSize, Seed: 99}
	train3, _, err := other.Split(labels)
	require.NoError(t, err)
	assert.NotEqual(t, train1, train3)
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		testSize float64
		wantErr  error
	}{
		{name: "no rows", labels: nil, testSize: 0.2, wantErr: ErrTooFewRows},
		{name: "one row", labels: []string{"1"}, testSize: 0.2, wantErr: ErrTooFewRows},
		{name: "singleton stratum", labels: []string{"1", "1", "1", "1", "2"}, testSize: 0.2, wantErr: ErrSingletonClass},
		{name: "test too small for strata", labels: []string{"1", "1", "2", "2", "3", "3"}, testSize: 0.2, wantErr: ErrSubsetTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &StratifiedShuffleSplit{TestSize: tt.testSize, Seed: DefaultSeed}
			_, _, err := s.Split(tt.labels)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSplit_InvalidTestSize(t *testing.T) {
	for _, size := range []float64{0, 1, -0.5, 1.5} {
		s := &StratifiedShuffleSplit{TestSize: size}
		_, _, err := s.Split([]string{"a", "a", "b", "b"})
		assert.Error(t, err, "size %v", size)
	}
}

func TestApproximateMode_SumsToDraws(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts := []int{3, 3, 3}
	got := approximateMode(counts, 4, rng)

	sum := 0
	for i, g := range got {
		sum += g
		assert.LessOrEqual(t, g, counts[i])
	}
	assert.Equal(t, 4, sum)
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
