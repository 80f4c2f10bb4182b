package css

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func knownElements(name string) bool {
	switch name {
	case "p", "div", "a", "ul", "li", "span", "table", "td":
		return true
	}
	return false
}

func TestValidateSelectors(t *testing.T) {
	tests := []struct {
		group    string
		want     string
		subjects []string
	}{
		{"p", "p", []string{"p"}},
		{"P", "p", []string{"p"}},
		{"div > p", "div > p", []string{"p"}},
		{"div>p", "div > p", []string{"p"}},
		{"ul   li", "ul li", []string{"li"}},
		{"div p > a", "div p > a", []string{"a"}},
		{"li + li", "li + li", []string{"li"}},
		{"a:hover, p.intro", "a:hover, p.intro", []string{"a", "p"}},
		{"*", "*", nil},
		{"#main", "#main", nil},
		{"div#main span", "div#main span", []string{"span"}},
		{`a[href="x"]`, `a[href="x"]`, []string{"a"}},
		{"a[href]", "a[href]", []string{"a"}},
		{"td[align=center]", "td[align=center]", []string{"td"}},
		{"p:lang(en)", "p:lang(en)", []string{"p"}},
		{"p:first-child[title~=x]", "p:first-child[title~=x]", []string{"p"}},
	}
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			got, subjects, ok := ValidateSelectors(tt.group, knownElements)

			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.subjects, subjects)
		})
	}
}

func TestValidateSelectorsRejects(t *testing.T) {
	for _, group := range []string{
		"",
		"a:visited",
		"foo",
		"p, foo",
		"p, a:visited",
		"p.a.b",
		"p +",
		"> p",
		"p::before",
		`a[hr\ef]`,
		"a[1x]",
		"a[href=]",
		`a[href="x]`,
		"p:lang()",
		"p:nth-child(2)",
		"p, , div",
	} {
		t.Run(group, func(t *testing.T) {
			_, _, ok := ValidateSelectors(group, knownElements)
			assert.False(t, ok)
		})
	}
}

func TestValidateSelectorsEscapesAttributeValues(t *testing.T) {
	got, _, ok := ValidateSelectors(`a[title="</style>"]`, knownElements)

	assert.True(t, ok)
	assert.NotContains(t, got, "<")
}

func TestFilterMedia(t *testing.T) {
	list, ok := FilterMedia("screen, Print, bogus")
	assert.True(t, ok)
	assert.Equal(t, []string{"screen", "print"}, list)

	_, ok = FilterMedia("bogus")
	assert.False(t, ok)
}
