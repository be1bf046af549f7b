package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestErrorAlert(t *testing.T) {
	html := render(t, ErrorAlert("Bad <file>", "Try again", "FILE003"))
	assert.Equal(t,
		`<div class="alert alert-error" role="alert"><p>Bad &lt;file&gt;</p><p class="alert-action">Try again</p><small>Code: FILE003</small></div>`,
		html)

	assert.NotContains(t, render(t, ErrorAlert("Oops", "", "GEN001")), "alert-action")
}

func TestBatchSummary(t *testing.T) {
	t.Run("reconciled", func(t *testing.T) {
		html := render(t, BatchSummary(BatchSummaryData{Created: 2, Updated: 1}))
		assert.Equal(t,
			`<div class="batch-summary"><h3>Batch reconciled</h3><dl><dt>Created</dt><dd>2</dd><dt>Updated</dt><dd>1</dd></dl></div>`,
			html)
	})

	t.Run("rejected with errors", func(t *testing.T) {
		html := render(t, BatchSummary(BatchSummaryData{Rejected: true, Errors: []string{"a & b"}}))
		assert.Contains(t, html, `class="batch-summary batch-summary--rejected"`)
		assert.Contains(t, html, "Batch rejected")
		assert.Contains(t, html, `<ul class="batch-errors"><li>a &amp; b</li></ul>`)
	})
}

func TestChainList(t *testing.T) {
	html := render(t, ChainList(
		ChainEntry{Name: "Stephen", Email: "stephen@example.com"},
		[]ChainEntry{{Name: "John", Email: "john@example.com"}, {Email: "brad@example.com"}},
	))
	assert.Equal(t,
		`<div class="chain"><h3>Stephen &lt;stephen@example.com&gt;</h3><ol><li>John &lt;john@example.com&gt;</li><li>brad@example.com</li></ol></div>`,
		html)
}
