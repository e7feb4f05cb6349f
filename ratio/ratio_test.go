package ratio

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   []int
		want []int
	}{
		{"already 100", []int{60, 30, 10}, []int{60, 30, 10}},
		{"under 100", []int{60, 30, 7}, []int{62, 31, 7}},
		{"over 100", []int{50, 30, 23}, []int{49, 29, 22}},
		{"zero three", []int{0, 0, 0}, []int{33, 33, 34}},
		{"zero four", []int{0, 0, 0, 0}, []int{25, 25, 25, 25}},
		{"zero eight", make([]int, 8), []int{12, 12, 12, 12, 12, 12, 12, 16}},
		{"negative clamps", []int{-5, 50, 50}, []int{0, 50, 50}},
		{"single", []int{40}, []int{100}},
		{"empty", []int{}, []int{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Normalize(c.in))
		})
	}
}

func TestNormalize_LastNeverNegative(t *testing.T) {
	assert.Equal(t, []int{43, 43, 14}, Normalize([]int{3, 3, 1}))

	// rounding half-up on every field overshoots, floor keeps last >= 0
	got := Normalize([]int{1, 1, 1, 1, 1, 1, 1, 1, 0})
	assert.Equal(t, 100, Sum(got))
	assert.GreaterOrEqual(t, got[len(got)-1], 0)
}

func TestNormalize_PropertySumAndIdempotence(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		n := 1 + r.Intn(8)
		in := make([]int, n)
		for j := range in {
			in[j] = r.Intn(120) - 10
		}
		once := Normalize(in)
		total := 0
		for _, v := range once {
			assert.GreaterOrEqual(t, v, 0, "input %v", in)
			total += v
		}
		assert.Equal(t, 100, total, "input %v", in)
		assert.Equal(t, once, Normalize(once), "input %v", in)
	}
}

func TestApply(t *testing.T) {
	pos, neu, neg := 60, 30, 13
	Apply(&pos, &neu, &neg)
	assert.Equal(t, 100, pos+neu+neg)
	assert.Equal(t, 58, pos)
	assert.Equal(t, 29, neu)
	assert.Equal(t, 13, neg)
}
