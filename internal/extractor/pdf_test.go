package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/extractor/pdftest"
	"docqa/internal/storage"
)

type fakePages struct {
	pages []string
	errAt int
}

func (f fakePages) NumPage() int { return len(f.pages) }

func (f fakePages) PageText(i int) (string, error) {
	if i == f.errAt {
		return "", errors.New("broken content stream")
	}
	return f.pages[i-1], nil
}

func TestJoinPages_Normalizes(t *testing.T) {
	src := fakePages{pages: []string{
		"  First page\twith a tab\n",
		"",
		"\nSecond\npage\r\n",
		"   ",
	}}

	text, err := joinPages(src)
	require.NoError(t, err)
	assert.Equal(t, "First pagewith a tabSecondpage", text)
}

func TestJoinPages_AllBlank(t *testing.T) {
	text, err := joinPages(fakePages{pages: []string{"", " \n ", ""}})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestJoinPages_PageError(t *testing.T) {
	_, err := joinPages(fakePages{pages: []string{"a", "b"}, errAt: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.Contains(t, err.Error(), "page 2")
}

func TestExtract_ThreePages(t *testing.T) {
	page := strings.Repeat("abcde", 100)
	path := writePDF(t, []string{page, page, page})

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Len(t, text, 1500)
	assert.Equal(t, page+page+page, text)
}

func TestExtract_BlankPagesYieldEmptyText(t *testing.T) {
	path := writePDF(t, []string{"", ""})

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExtract_SkipsPagesWithoutText(t *testing.T) {
	path := writePDF(t, []string{"Intro", "", "Outro"})

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "IntroOutro", text)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestExtract_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("just some plain text"), 0o644))

	_, err := Extract(path)
	require.Error(t, err)
	assert.Equal(t, domain.KindExtraction, domain.KindOf(err))
}

func TestExtract_SavedDocument(t *testing.T) {
	doc := domain.Document{
		Name: "handbook.pdf",
		Data: pdftest.Build([]string{"Chapter one.", "Chapter two."}),
	}
	path, err := storage.Save(doc, filepath.Join(t.TempDir(), "documents"))
	require.NoError(t, err)

	text, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Chapter one.Chapter two.", text)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("a.pdf"))
	assert.True(t, IsPDF("REPORT.PDF"))
	assert.False(t, IsPDF("a.txt"))
	assert.False(t, IsPDF("pdf"))
}

func writePDF(t *testing.T, pages []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Build(pages), 0o644))
	return path
}
