package uripolicy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()

	assert.Equal(t, []string{"http", "https", "ftp", "mailto"}, p.Schemes)
	assert.True(t, p.AllowRelative)
	assert.True(t, p.AllowGetForms)
	assert.False(t, p.AllowPostForms)
	assert.False(t, p.AllowBaseHref)
}

func TestProcessURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
		ok   bool
	}{
		{"http://example.com/a", "http://example.com/a", true},
		{"HTTPS://example.com/a?b=c", "https://example.com/a?b=c", true},
		{"mailto:someone@example.com", "mailto:someone@example.com", true},
		{"/relative/path", "/relative/path", true},
		{"img.png", "img.png", true},
		{"#top", "#top", true},
		{"javascript:alert(1)", "", false},
		{"JavaScript:alert(1)", "", false},
		{"java\tscript:alert(1)", "", false},
		{"data:text/html,x", "", false},
		{"vbscript:x", "", false},
		{"http:", "", false},
		{"  http://example.com/  ", "http://example.com/", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, ok := New(nil).ProcessURI(tt.uri, "")

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessURIHosts(t *testing.T) {
	// given
	c := New(&Policy{Schemes: []string{"https"}, Hosts: []string{"example.com"}})

	// when
	_, okListed := c.ProcessURI("https://EXAMPLE.com/x", "")
	_, okOther := c.ProcessURI("https://evil.com/x", "")
	_, okRelative := c.ProcessURI("/x", "")

	// then
	assert.True(t, okListed)
	assert.False(t, okOther)
	assert.False(t, okRelative)
}

func TestProcessURIMIMETypes(t *testing.T) {
	c := New(&Policy{Schemes: []string{"http"}, AllowRelative: true, MIMETypes: []string{"text/css"}})

	_, ok := c.ProcessURI("a.css", "text/css")
	assert.True(t, ok)

	_, ok = c.ProcessURI("a.js", "text/javascript")
	assert.False(t, ok)

	_, ok = c.ProcessURI("a.png", "")
	assert.True(t, ok)
}

func TestFormsAndBase(t *testing.T) {
	c := New(&Policy{Schemes: []string{"https"}, AllowRelative: true, AllowPostForms: true, AllowBaseHref: true})

	assert.False(t, c.AllowGetForms())
	assert.True(t, c.AllowPostForms())

	action, ok := c.ProcessForm("post", "/submit")
	assert.True(t, ok)
	assert.Equal(t, "/submit", action)

	_, ok = c.ProcessForm("post", "javascript:x")
	assert.False(t, ok)

	href, ok := c.OnBaseHref("https://example.com/")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/", href)

	_, ok = New(nil).OnBaseHref("https://example.com/")
	assert.False(t, ok)
}

func TestOnTextCountsBytes(t *testing.T) {
	c := New(nil)

	c.OnText("café", "p")
	c.OnText("x", "")

	assert.Equal(t, 6, c.TextBytes())
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte("schemes: [HTTPS]\nhosts: [Example.COM]\nallow_post_forms: true\n"))

	require.NoError(t, err)
	assert.Equal(t, []string{"https"}, p.Schemes)
	assert.Equal(t, []string{"example.com"}, p.Hosts)
	assert.True(t, p.AllowPostForms)
	assert.False(t, p.AllowRelative)
}

func TestParseRejectsInvalid(t *testing.T) {
	for name, data := range map[string]string{
		"no schemes":   "hosts: [example.com]\n",
		"bad scheme":   "schemes: [\"ht tp\"]\n",
		"bad host":     "schemes: [http]\nhosts: [\"not a host\"]\n",
		"bad mime":     "schemes: [http]\nmime_types: [css]\n",
		"not yaml map": "- http\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schemes: [https]\nallow_relative: true\n"), 0o600))

	// when
	p, err := Load(path)

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"https"}, p.Schemes)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
