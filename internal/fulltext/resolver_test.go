package fulltext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDOIStripsSchemeAndLowercases(t *testing.T) {
	cases := map[string]string{
		"https://doi.org/10.1145/ABC":     "10.1145/abc",
		"http://dx.doi.org/10.1145/ABC":   "10.1145/abc",
		"10.1145/ABC":                     "10.1145/abc",
		"  https://doi.org/10.48550/XYZ ": "10.48550/xyz",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeDOI(input), "input=%q", input)
	}
}
