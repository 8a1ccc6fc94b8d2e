package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "both empty", a: "", b: "", want: 1.0},
		{name: "whitespace only counts as empty", a: "   ", b: "\t", want: 1.0},
		{name: "left empty", a: "", b: "hello", want: 0.0},
		{name: "right empty", a: "hello", b: "", want: 0.0},
		{name: "identical", a: "Save your changes", b: "Save your changes", want: 1.0},
		{name: "case insensitive", a: "Rock Music", b: "rock music", want: 1.0},
		{name: "disjoint", a: "open the door", b: "close a window", want: 0.0},
		{name: "partial overlap", a: "save the file", b: "save a file", want: 0.5},
		{name: "duplicates collapse", a: "go go go", b: "go", want: 1.0},
		{name: "order ignored", a: "file the save", b: "save the file", want: 1.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Compute(tc.a, tc.b), 1e-9)
		})
	}
}

func TestComputeProperties(t *testing.T) {
	inputs := []string{"", "a", "a b", "the quick brown fox", "Quick fox", "lorem ipsum dolor"}

	for _, a := range inputs {
		assert.InDelta(t, 1.0, Compute(a, a), 1e-9, "Compute(%q, %q)", a, a)
		for _, b := range inputs {
			ab := Compute(a, b)
			assert.InDelta(t, ab, Compute(b, a), 1e-9, "symmetry for %q/%q", a, b)
			assert.GreaterOrEqual(t, ab, 0.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	}
}
