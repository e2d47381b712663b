package markup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	f := NewFilter("badword")

	assert.Equal(t, "Cat & dog", f.CleanText("  <b>Cat</b> & dog "))
	assert.Equal(t, "a ******* b", f.CleanText("a badword b"))
	assert.Equal(t, "", f.CleanText("<script>alert(1)</script>"))
}

func TestLoadWordsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	require.NoError(t, os.WriteFile(path, []byte("spam\n"), 0o644))

	f := NewFilter()
	assert.Equal(t, "spam", f.CleanText("spam"))
	require.NoError(t, f.LoadWordsFile(path))
	assert.Equal(t, "****", f.CleanText("spam"))

	assert.Error(t, f.LoadWordsFile(filepath.Join(t.TempDir(), "missing.txt")))
}

func TestRenderMarkdown(t *testing.T) {
	f := NewFilter()

	out := f.RenderMarkdown("**hi** <script>alert(1)</script>")
	assert.Contains(t, out, "<strong>hi</strong>")
	assert.NotContains(t, out, "<script>")
	assert.Equal(t, "", f.RenderMarkdown(""))
}
