package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrefixQuery(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		want  string
	}{
		{"dune", `"dune"*`},
		{"  Frank   Herbert ", `"Frank"* "Herbert"*`},
		{`title:"dune" OR NEAR(x)`, `"title"* "dune"* "OR"* "NEAR"* "x"*`},
		{"Ender's Game", `"Ender's"* "Game"*`},
		{"'quoted'", `"quoted"*`},
		{"Cien años", `"Cien"* "años"*`},
		{"***", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildPrefixQuery(tt.input), tt.input)
	}
}

func TestBuildPrefixQuery_Limits(t *testing.T) {
	t.Parallel()
	q := BuildPrefixQuery("a b c d e f g h i j k")
	assert.Equal(t, maxQueryTerms, strings.Count(q, "*"))

	long := strings.Repeat("x", maxQueryLength+50)
	assert.Equal(t, `"`+strings.Repeat("x", maxQueryLength)+`"*`, BuildPrefixQuery(long))
}
