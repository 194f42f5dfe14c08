package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// DefaultTestSize is the fraction of rows assigned to the test subset.
const DefaultTestSize = 0.2

// DefaultSeed seeds the shuffle so repeated runs select the same rows.
const DefaultSeed int64 = 2

var (
	// ErrTooFewRows is returned when there are not enough rows to split.
	ErrTooFewRows = errors.New("too few rows to split")
	// ErrSingletonClass is returned when a stratum has only one member.
	ErrSingletonClass = errors.New("stratum has only one member")
	// ErrSubsetTooSmall is returned when a subset cannot hold one row per stratum.
	ErrSubsetTooSmall = errors.New("subset smaller than the number of strata")
)

// StratifiedShuffleSplit draws one random train/test partition that preserves
// the proportion of each label in both subsets.
type StratifiedShuffleSplit struct {
	TestSize float64
	Seed     int64
}

// NewStratifiedShuffleSplit returns a splitter with the default test size and seed.
func NewStratifiedShuffleSplit() *StratifiedShuffleSplit {
	return &StratifiedShuffleSplit{TestSize: DefaultTestSize, Seed: DefaultSeed}
}

// Sizes returns the train and test row counts for n rows.
func (s *StratifiedShuffleSplit) Sizes(n int) (nTrain, nTest int) {
	nTest = int(math.Ceil(s.TestSize * float64(n)))
	return n - nTest, nTest
}

// Split partitions row positions 0..len(labels)-1 into train and test sets.
// The result is a pure function of labels, TestSize and Seed.
func (s *StratifiedShuffleSplit) Split(labels []string) (train, test []int, err error) {
	if s.TestSize <= 0 || s.TestSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %v", s.TestSize)
	}
	n := len(labels)
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: %d", ErrTooFewRows, n)
	}

	classes, members := groupByLabel(labels)
	counts := make([]int, len(classes))
	for i, c := range classes {
		counts[i] = len(members[c])
		if counts[i] < 2 {
			return nil, nil, fmt.Errorf("%w: %q", ErrSingletonClass, c)
		}
	}

	nTrain, nTest := s.Sizes(n)
	if nTrain < len(classes) || nTest < len(classes) {
		return nil, nil, fmt.Errorf("%w: train=%d test=%d strata=%d", ErrSubsetTooSmall, nTrain, nTest, len(classes))
	}

	rng := rand.New(rand.NewSource(s.Seed))
	trainPerClass := approximateMode(counts, nTrain, rng)
	remaining := make([]int, len(counts))
	for i := range counts {
		remaining[i] = counts[i] - trainPerClass[i]
	}
	testPerClass := approximateMode(remaining, nTest, rng)

	train = make([]int, 0, nTrain)
	test = make([]int, 0, nTest)
	for i, c := range classes {
		rows := members[c]
		perm := rng.Perm(len(rows))
		for j, p := range perm {
			switch {
			case j < trainPerClass[i]:
				train = append(train, rows[p])
			case j < trainPerClass[i]+testPerClass[i]:
				test = append(test, rows[p])
			}
		}
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test, nil
}

// CountByLabel tallies how many of the given rows carry each label.
func CountByLabel(labels []string, rows []int) map[string]int {
	out := make(map[string]int)
	for _, r := range rows {
		out[labels[r]]++
	}
	return out
}

func groupByLabel(labels []string) ([]string, map[string][]int) {
	members := make(map[string][]int)
	for i, l := range labels {
		members[l] = append(members[l], i)
	}
	classes := make([]string, 0, len(members))
	for c := range members {
		classes = append(classes, c)
	}
	sort.Strings(classes)
	return classes, members
}

// approximateMode distributes draws across classes proportionally to counts.
// Each class gets the floor of its share; leftover draws go to the classes
// with the largest fractional remainders, ties broken at random.
func approximateMode(counts []int, draws int, rng *rand.Rand) []int {
	total := 0
	for _, c := range counts {
		total += c
	}

	out := make([]int, len(counts))
	remainder := make([]float64, len(counts))
	assigned := 0
	for i, c := range counts {
		share := float64(c) / float64(total) * float64(draws)
		out[i] = int(math.Floor(share))
		remainder[i] = share - float64(out[i])
		assigned += out[i]
	}

	need := draws - assigned
	if need <= 0 {
		return out
	}

	values := make([]float64, 0, len(remainder))
	seen := make(map[float64]bool)
	for _, r := range remainder {
		if !seen[r] {
			seen[r] = true
			values = append(values, r)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	for _, v := range values {
		var tied []int
		for i, r := range remainder {
			if r == v {
				tied = append(tied, i)
			}
		}
		rng.Shuffle(len(tied), func(a, b int) { tied[a], tied[b] = tied[b], tied[a] })
		take := min(len(tied), need)
		for _, i := range tied[:take] {
			out[i]++
		}
		need -= take
		if need == 0 {
			break
		}
	}
	return out
}
