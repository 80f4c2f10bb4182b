package contentfilter_test

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/contentfilter"
)

// recorder accepts every URI except javascript: and data:, unchanged,
// and records what the filter asked for.
type recorder struct {
	uris  []string
	texts []string
	get   bool
	post  bool
	base  bool
}

func (r *recorder) ProcessURI(uri, overrideMIMEType string) (string, bool) {
	r.uris = append(r.uris, uri+"|"+overrideMIMEType)
	lower := strings.ToLower(strings.TrimSpace(uri))
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "data:") {
		return "", false
	}
	return uri, true
}

func (r *recorder) AllowGetForms() bool { return r.get }
func (r *recorder) AllowPostForms() bool { return r.post }

func (r *recorder) ProcessForm(_, action string) (string, bool) {
	if action == "" || strings.HasPrefix(strings.ToLower(action), "javascript:") {
		return "", false
	}
	return action, true
}

func (r *recorder) OnBaseHref(href string) (string, bool) {
	return href, r.base
}

func (r *recorder) OnText(text, containingTag string) {
	r.texts = append(r.texts, containingTag+":"+text)
}

func sanitize(t *testing.T, in string, cb contentfilter.BoundaryCallback) string {
	t.Helper()
	got, err := contentfilter.Sanitize(in, cb)
	require.NoError(t, err)
	return got
}

func filterHTML(opts *contentfilter.Options, in string, cb contentfilter.BoundaryCallback) (string, error) {
	out, err := contentfilter.NewHTMLFilter(opts).Read([]byte(in), "utf-8", cb)
	return string(out), err
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"script stripped", `<p>Hello</p><script>alert('xss')</script>`, `<p>Hello</p>`},
		{"script with markup", `<script>document.write("<b>x</b>")</script>ok`, `ok`},
		{"javascript href", `<a href="javascript:alert(1)">click</a>`, `<a>click</a>`},
		{"data uri", `<img src="data:text/html,x" alt="i">`, `<img alt="i">`},
		{"entities round trip", `<a href="/x?a=1&amp;b=2" title="x">l</a>`, `<a href="/x?a=1&amp;b=2" title="x">l</a>`},
		{"event handler", `<p onclick="alert(1)" class="c" onmouseover=x>x</p>`, `<p class="c">x</p>`},
		{"any on* handler", `<img alt="a" onpointerenter="x" ONAnimationStart=y>`, `<img alt="a">`},
		{"unknown attribute", `<p foo="bar">x</p>`, `<p>x</p>`},
		{"duplicate attribute", `<p class="a" class="b">x</p>`, `<p class="a">x</p>`},
		{"unknown tag", `<blink>hi</blink>`, `<!-- deleted unknown element -->hi`},
		{"stray less-than", `a < b`, `a &lt; b`},
		{"unterminated tag", `if a<b then`, `if a&lt;b then`},
		{"tag interrupted", `<p <b>x`, `&lt;p <b>x`},
		{"comment escaped", `<!-- a <b> -->x`, `<!-- a &lt;b&gt; -->x`},
		{"unterminated comment", `x<!-- never closed`, `x`},
		{"style comment hiding", "<style><!--\np { color: red }\n--></style>", "<style>p { color: red; }\n</style>"},
		{"style attributes", `<style type="TEXT/CSS" media="screen, bogus" onload="x">p{color:red}</style>`,
			"<style type=\"text/css\" media=\"screen\">p { color: red; }\n</style>"},
		{"style wrong type", `<style type="text/javascript">p{color:red}</style>x`, `x`},
		{"unterminated style", `<style>p { color: red }`, ``},
		{"inline style", `<p style="color: red; behavior: url(x)">x</p>`, `<p style="color: red;">x</p>`},
		{"inline expression", `<p style="width: expression(alert(1))">x</p>`, `<p>x</p>`},
		{"checked", `<input type="checkbox" checked>`, `<input type="checkbox" checked="checked">`},
		{"file input", `<input type="file" name="f">`, ``},
		{"button type", `<button type="SUBMIT">go</button><button type="menu">m</button>`,
			`<button type="submit">go</button><button>m</button>`},
		{"self closing", `a<br/>b<br />c`, `a<br />b<br />c`},
		{"unquoted value", `<td align=center>x</td>`, `<td align="center">x</td>`},
		{"detached equals", `<td align = "center">x</td>`, `<td align="center">x</td>`},
		{"quote escaping", `<p title='say "hi"'>x</p>`, `<p title="say &#34;hi&#34;">x</p>`},
		{"lang and dir", `<p lang="en-GB" dir="RTL" xml:lang="no way">x</p>`, `<p lang="en-GB" dir="rtl">x</p>`},
		{"doctype", `<!DOCTYPE html><p>x</p>`, `<!DOCTYPE html><p>x</p>`},
		{"unknown doctype", `<!DOCTYPE foo><p>x</p>`, `<p>x</p>`},
		{"xml declaration", `<?xml version="1.0" encoding="UTF-8"?><p>x</p>`, `<?xml version="1.0" encoding="UTF-8"?><p>x</p>`},
		{"xml declaration charset mismatch", `<?xml version="1.0" encoding="iso-8859-2"?><p>x</p>`, `<p>x</p>`},
		{"meta charset", `<meta charset="iso-8859-1">`, `<meta charset="utf-8">`},
		{"meta content type", `<meta http-equiv="Content-Type" content="text/html; charset=iso-8859-1">`,
			`<meta http-equiv="Content-Type" content="text/html; charset=utf-8">`},
		{"meta refresh", `<meta http-equiv="refresh" content="0; url=http://evil/">`, ``},
		{"meta name", `<meta name="Description" content="a page">`, `<meta name="description" content="a page">`},
		{"prefetch link", `<link rel="prefetch" href="x">`, ``},
		{"anchor type", `<a href="f.pdf" type="Application/PDF">f</a>`, `<a href="f.pdf" type="application/pdf">f</a>`},
		{"html xmlns", `<html xmlns="http://www.w3.org/1999/xhtml"></html>`, `<html xmlns="http://www.w3.org/1999/xhtml"></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitize(t, tt.in, &recorder{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitize_UnknownTagStrict(t *testing.T) {
	// given
	opts := &contentfilter.Options{Strict: true}

	// when
	got, err := filterHTML(opts, `<blink>hi</blink>`, &recorder{})

	// then
	require.NoError(t, err)
	assert.Equal(t, `hi`, got)
}

func TestSanitize_DeleteComments(t *testing.T) {
	got, err := filterHTML(&contentfilter.Options{DeleteComments: true}, `a<!-- c -->b<blink>c</blink>`, &recorder{})

	require.NoError(t, err)
	assert.Equal(t, `abc`, got)
}

func TestSanitize_NestedRawText(t *testing.T) {
	for _, in := range []string{
		`<style>p {}<style>`,
		`<script>x<script>`,
		`<style><script>`,
	} {
		_, err := contentfilter.Sanitize(in, &recorder{})

		require.Error(t, err, in)
		assert.True(t, errors.Is(err, contentfilter.ErrSyntax), in)
		fe, ok := contentfilter.AsError(err)
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(fe.Reason, "nested-"))
	}
}

func TestSanitize_StyleCharsetMismatch(t *testing.T) {
	_, err := contentfilter.Sanitize(`<style>@charset "iso-8859-2"; p { color: red }</style>`, &recorder{})

	assert.True(t, errors.Is(err, contentfilter.ErrCharset))
}

func TestSanitize_StyleUnbalanced(t *testing.T) {
	_, err := contentfilter.Sanitize(`<p style="width: rgb(1,2">x</p>`, &recorder{})

	assert.True(t, errors.Is(err, contentfilter.ErrSyntax))
}

func TestSanitize_Forms(t *testing.T) {
	// given
	cb := &recorder{post: true}
	in := `<form method="POST" action="/submit" onsubmit="x()"><input type="text" name="q"><input type="file" name="f"></form>`

	// when
	got := sanitize(t, in, cb)

	// then
	assert.Equal(t, `<form method="post" action="/submit" enctype="multipart/form-data" accept-charset="UTF-8">`+
		`<input type="text" name="q"></form>`, got)
}

func TestSanitize_GetForm(t *testing.T) {
	got := sanitize(t, `<form action="/search" name="s"></form>`, &recorder{get: true})

	assert.Equal(t, `<form name="s" method="get" action="/search" accept-charset="UTF-8"></form>`, got)
}

func TestSanitize_FormRejected(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		cb      *recorder
		reason  string
		comment string
	}{
		{"post refused", `<form method="post" action="/x">`, &recorder{get: true},
			"form-post-refused", "<!-- a form using POST was removed -->"},
		{"get refused", `<form action="/x">`, &recorder{post: true},
			"form-get-refused", "<!-- a form using GET was removed -->"},
		{"action refused", `<form action="javascript:x()">`, &recorder{get: true},
			"form-action-refused", "<!-- a form was removed because its action was refused -->"},
		{"odd method", `<form method="put" action="/x">`, &recorder{get: true, post: true},
			"form-method", "<!-- a form with an unsupported method was removed -->"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterHTML(nil, tt.in, tt.cb)
			require.NoError(t, err)
			assert.Equal(t, tt.comment, got)

			_, err = filterHTML(&contentfilter.Options{Strict: true}, tt.in, tt.cb)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contentfilter.ErrRejected))
			fe, ok := contentfilter.AsError(err)
			require.True(t, ok)
			assert.Equal(t, tt.reason, fe.Reason)
		})
	}
}

func TestSanitize_LinkStylesheet(t *testing.T) {
	// given
	cb := &recorder{}

	// when
	got := sanitize(t, `<link rel="StyleSheet" href="s.css" media="print">`, cb)

	// then
	assert.Equal(t, `<link rel="stylesheet" href="s.css" media="print">`, got)
	assert.Equal(t, []string{"s.css|text/css"}, cb.uris)
}

func TestSanitize_LinkRejected(t *testing.T) {
	got := sanitize(t, `<link rel="stylesheet" href="javascript:x">`, &recorder{})
	assert.Equal(t, `<!-- a link was removed because its target was refused -->`, got)

	got = sanitize(t, `<link rel="stylesheet" type="text/javascript" href="s.js">`, &recorder{})
	assert.Equal(t, ``, got)
}

func TestSanitize_TargetMIMEType(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		uris []string
	}{
		{"anchor rel stylesheet", `<a href="x.css" rel="stylesheet">s</a>`,
			`<a href="x.css" rel="stylesheet">s</a>`, []string{"x.css|text/css"}},
		{"anchor rev stylesheet", `<a href="x.css" rev="Stylesheet">s</a>`,
			`<a href="x.css" rev="Stylesheet">s</a>`, []string{"x.css|text/css"}},
		{"anchor stylesheet wins over type", `<a href="x.css" rel="stylesheet" type="text/plain">s</a>`,
			`<a href="x.css" rel="stylesheet" type="text/css">s</a>`, []string{"x.css|text/css"}},
		{"anchor other relation", `<a href="x.html" rel="next">n</a>`,
			`<a href="x.html" rel="next">n</a>`, []string{"x.html|"}},
		{"link rev stylesheet", `<link rev="stylesheet" href="x.css">`,
			`<link rev="stylesheet" href="x.css">`, []string{"x.css|text/css"}},
		{"link rev stylesheet with other type", `<link rev="stylesheet" type="text/plain" href="x.css">`,
			``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			cb := &recorder{}

			// when
			got := sanitize(t, tt.in, cb)

			// then
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.uris, cb.uris)
		})
	}
}

func TestSanitize_Base(t *testing.T) {
	got := sanitize(t, `<base href="http://example.com/">`, &recorder{base: true})
	assert.Equal(t, `<base href="http://example.com/">`, got)

	got = sanitize(t, `<base href="http://example.com/">`, &recorder{})
	assert.Equal(t, `<!-- a base URI was removed because it was refused -->`, got)

	_, err := filterHTML(&contentfilter.Options{Strict: true}, `<base href="http://example.com/">`, &recorder{})
	assert.True(t, errors.Is(err, contentfilter.ErrRejected))
}

func TestSanitize_OnText(t *testing.T) {
	// given
	cb := &recorder{}

	// when
	sanitize(t, `top<p>a &amp; <b>b</b></p><script>no</script><style>p{}</style>`, cb)

	// then
	assert.Equal(t, []string{":top", "p:a & ", "b:b"}, cb.texts)
}

func TestSanitize_NilCallbackRefusesEverything(t *testing.T) {
	got, err := contentfilter.Sanitize(`<a href="http://example.com/">x</a><form action="/x"></form>`, nil)

	require.NoError(t, err)
	assert.Equal(t, `<a>x</a><!-- a form using GET was removed --></form>`, got)
}

func TestSanitize_Idempotent(t *testing.T) {
	// given
	in := `<!DOCTYPE html><html><head><title>T</title>` +
		`<style>p { color: red } a:hover { text-decoration: underline }</style></head>` +
		`<body><p class="x" style="color: blue;margin:0 auto" title='a "b"'>a &amp; b ` +
		`<a href="/x?a=1&amp;b=2">l</a></p><!-- c < d --><blink>z</blink>` +
		`<input type=checkbox checked><br/>x < y</body></html>`

	// when
	once := sanitize(t, in, &recorder{})
	twice := sanitize(t, once, &recorder{})

	// then
	assert.Equal(t, once, twice)
}

func TestHTMLFilter_Latin1RoundTrip(t *testing.T) {
	// given
	cb := &recorder{}
	f := contentfilter.NewHTMLFilter(nil)

	// when
	out, err := f.Read([]byte("<p>caf\xe9</p>"), "iso-8859-1", cb)

	// then
	require.NoError(t, err)
	assert.Equal(t, []byte("<p>caf\xe9</p>"), out)
	assert.Equal(t, []string{"p:café"}, cb.texts)
}

func TestHTMLFilter_UnsupportedCharset(t *testing.T) {
	_, err := contentfilter.NewHTMLFilter(nil).Read([]byte("<p>x</p>"), "x-no-such-charset", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, contentfilter.ErrCharset))
	fe, ok := contentfilter.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "unsupported-charset", fe.Reason)
}

func TestHTMLFilter_ExtractCharset(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		ok      bool
	}{
		{"meta charset", `<html><head><meta charset="utf-8"></head><body></body></html>`, "utf-8", true},
		{"latin-1 label", `<meta charset="ISO-8859-1">`, "windows-1252", true},
		{"http-equiv", `<meta http-equiv="content-type" content="text/html; charset=Shift_JIS">`, "shift_jis", true},
		{"xml declaration", `<?xml version="1.0" encoding="utf-8"?><html></html>`, "utf-8", true},
		{"first wins", `<meta charset="utf-8"><meta charset="iso-8859-2">`, "utf-8", true},
		{"after body", `<html><body><meta charset="utf-8"></body></html>`, "", false},
		{"none", `<p>nothing here</p>`, "", false},
		{"unknown label", `<meta charset="x-klingon">`, "x-klingon", true},
		{"byte order mark", "\xef\xbb\xbf<meta charset=\"iso-8859-2\">", "utf-8", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := contentfilter.NewHTMLFilter(nil).ExtractCharset([]byte(tt.content), "windows-1252")

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSSFilter(t *testing.T) {
	// given
	cb := &recorder{}
	f, ok := contentfilter.ForMIMEType("text/css", nil)
	require.True(t, ok)

	// when
	out, err := f.Read([]byte(`@import "a.css"; p { color: red; background: url(javascript:x) }`), "utf-8", cb)

	// then
	require.NoError(t, err)
	assert.Equal(t, "@import url(\"a.css\");\np { color: red; }\n", string(out))
	assert.Equal(t, []string{"a.css|text/css", "javascript:x|"}, cb.uris)
}

func TestCSSFilter_ExtractCharset(t *testing.T) {
	f := contentfilter.NewCSSFilter(nil)

	got, ok := f.ExtractCharset([]byte(`@charset "ISO-8859-2"; p { color: red }`), "utf-8")
	assert.True(t, ok)
	assert.Equal(t, "iso-8859-2", got)

	_, ok = f.ExtractCharset([]byte(`p { color: red }`), "utf-8")
	assert.False(t, ok)
}

func TestForMIMEType(t *testing.T) {
	f, ok := contentfilter.ForMIMEType("text/html", nil)
	require.True(t, ok)
	assert.IsType(t, &contentfilter.HTMLFilter{}, f)

	f, ok = contentfilter.ForMIMEType(" Application/XHTML+XML", nil)
	require.True(t, ok)
	assert.IsType(t, &contentfilter.HTMLFilter{}, f)

	f, ok = contentfilter.ForMIMEType("TEXT/CSS", nil)
	require.True(t, ok)
	assert.IsType(t, &contentfilter.CSSFilter{}, f)

	_, ok = contentfilter.ForMIMEType("image/png", nil)
	assert.False(t, ok)
}

func TestSanitizeStyle(t *testing.T) {
	got, err := contentfilter.SanitizeStyle("border-collapse: collapse; color: red", "td", nil)
	require.NoError(t, err)
	assert.Equal(t, "color: red;", got)

	got, err = contentfilter.SanitizeStyle("border-collapse: collapse; color: red", "table", nil)
	require.NoError(t, err)
	assert.Equal(t, "border-collapse: collapse; color: red;", got)
}

func TestStripTags(t *testing.T) {
	got, err := contentfilter.StripTags(`<p>Hello <b>world</b> &amp; co</p><script>x()</script><!-- c --><style>p{}</style>`)

	require.NoError(t, err)
	assert.Equal(t, "Hello world & co", got)
}

func TestSanitizeReader(t *testing.T) {
	got, err := contentfilter.SanitizeReader(strings.NewReader(`<b>hello</b><script>bad</script>`), &recorder{})

	require.NoError(t, err)
	assert.Equal(t, `<b>hello</b>`, got)
}

var garbageRunes = []rune(`<>/!-="' abcdefilnoprstyABP?&;:`)

func TestSanitize_Garbage(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		b := make([]rune, r.Intn(1000))
		for j := range b {
			b[j] = garbageRunes[r.Intn(len(garbageRunes))]
		}
		in := string(b)

		got, err := contentfilter.Sanitize(in, &recorder{})

		if err != nil {
			_, ok := contentfilter.AsError(err)
			assert.True(t, ok, "unexpected error type for %q", in)
			continue
		}
		assert.NotContains(t, strings.ToLower(got), "<script", "input %q", in)
	}
}

func BenchmarkSanitize(b *testing.B) {
	input := []byte(strings.Repeat(`<p>Hello <b>world</b> <script>bad()</script> <a href="http://x.com">link</a></p>`, 100))
	f := contentfilter.NewHTMLFilter(nil)
	cb := &recorder{}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = f.Filter(bytes.NewReader(input), &bytes.Buffer{}, "utf-8", cb)
	}
}
