package filtererr_test

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/njchilds90/contentfilter/filtererr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EscapesExplanation(t *testing.T) {
	e := filtererr.New(filtererr.ErrSyntax, "bad-tag", `<script> & "x"`)

	assert.Equal(t, "bad-tag", e.Reason)
	assert.Equal(t, `<script> & "x"`, e.Explanation)
	assert.Equal(t, "&lt;script&gt; &amp; &#34;x&#34;", e.HTMLExplanation)
	assert.Equal(t, `bad-tag: <script> & "x"`, e.Error())
}

func TestIs_MatchesKind(t *testing.T) {
	e := filtererr.New(filtererr.ErrCharset, "charset-mismatch", "x")

	assert.True(t, errors.Is(e, filtererr.ErrCharset))
	assert.False(t, errors.Is(e, filtererr.ErrSyntax))
}

func TestWrap_UnwrapsCause(t *testing.T) {
	// given
	e := filtererr.Wrap(filtererr.ErrIO, "read", io.ErrUnexpectedEOF)

	// when
	wrapped := fmt.Errorf("filter: %w", e)

	// then
	assert.True(t, errors.Is(wrapped, io.ErrUnexpectedEOF))
	assert.True(t, errors.Is(wrapped, filtererr.ErrIO))
	fe, ok := filtererr.AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "read", fe.Reason)
}

func TestAsError_ForeignError(t *testing.T) {
	_, ok := filtererr.AsError(io.EOF)
	assert.False(t, ok)
}
