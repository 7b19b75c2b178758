package filing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func touch(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRenameInPlace(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, filepath.Join(dir, "scan001.pdf"), "a")
	f := NewFiler("", logger.NewTestLogger())

	out := f.Rename(src, models.FilingSuggestion{Filename: "20240115 Invoice.pdf", Destination: "Finances"})
	require.NoError(t, out.Err)
	assert.Equal(t, StatusRenamed, out.Status)
	assert.Equal(t, filepath.Join(dir, "20240115 Invoice.pdf"), out.Target)
	assert.NoFileExists(t, src)
	assert.FileExists(t, out.Target)
}

func TestRenameConflict(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, filepath.Join(dir, "scan001.pdf"), "a")
	touch(t, filepath.Join(dir, "taken.pdf"), "b")
	f := NewFiler("", logger.NewTestLogger())

	out := f.Rename(src, models.FilingSuggestion{Filename: "taken.pdf"})
	assert.Equal(t, StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, ErrTargetExists)
	assert.NotEmpty(t, out.Message)
	assert.FileExists(t, src)

	data, err := os.ReadFile(filepath.Join(dir, "taken.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))
}

func TestRenameToSameName(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, filepath.Join(dir, "same.pdf"), "a")

	out := NewFiler("", logger.NewTestLogger()).Rename(src, models.FilingSuggestion{Filename: "same.pdf"})
	assert.Equal(t, StatusRenamed, out.Status)
	assert.FileExists(t, src)
}

func TestMoveCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "Archive")
	src := touch(t, filepath.Join(dir, "inbox", "scan.pdf"), "a")
	f := NewFiler(base, logger.NewTestLogger())

	out := f.Move(src, models.FilingSuggestion{Filename: "Bill.pdf", Destination: "Finances/Bills"}, "")
	require.NoError(t, out.Err)
	assert.Equal(t, StatusMoved, out.Status)
	assert.Equal(t, filepath.Join(base, "Finances", "Bills", "Bill.pdf"), out.Target)
	assert.FileExists(t, out.Target)
	assert.NoFileExists(t, src)
}

func TestMoveBaseFallbacks(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, filepath.Join(dir, "scan.pdf"), "a")

	out := NewFiler("", logger.NewTestLogger()).Move(src, models.FilingSuggestion{Filename: "x.pdf", Destination: "Work"}, "")
	assert.Equal(t, filepath.Join(dir, "Work", "x.pdf"), out.Target)

	src = touch(t, filepath.Join(dir, "scan2.pdf"), "b")
	override := filepath.Join(dir, "override")
	out = NewFiler(filepath.Join(dir, "default"), logger.NewTestLogger()).
		Move(src, models.FilingSuggestion{Filename: "y.pdf", Destination: "Work"}, override)
	assert.Equal(t, filepath.Join(override, "Work", "y.pdf"), out.Target)
}

func TestMoveSkipsEmptyDestination(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, filepath.Join(dir, "scan.pdf"), "a")

	out := NewFiler(dir, logger.NewTestLogger()).Move(src, models.FilingSuggestion{Filename: "x.pdf"}, "")
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Empty(t, out.Target)
	assert.FileExists(t, src)
}

func TestRejectsEscapingNames(t *testing.T) {
	dir := t.TempDir()
	src := touch(t, filepath.Join(dir, "in", "scan.pdf"), "a")
	f := NewFiler(filepath.Join(dir, "base"), logger.NewTestLogger())

	for _, s := range []models.FilingSuggestion{
		{Filename: "../evil.pdf", Destination: "Work"},
		{Filename: "", Destination: "Work"},
		{Filename: "ok.pdf", Destination: "../outside"},
		{Filename: "ok.pdf", Destination: "/abs"},
	} {
		out := f.Move(src, s, "")
		assert.Equal(t, StatusFailed, out.Status, "%+v", s)
	}
	assert.FileExists(t, src)
}

func TestCommitAllContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "a.pdf"), "a")
	b := touch(t, filepath.Join(dir, "b.pdf"), "b")
	touch(t, filepath.Join(dir, "taken.pdf"), "t")

	outcomes := NewFiler("", logger.NewTestLogger()).CommitAll(map[string]models.FilingSuggestion{
		a: {Filename: "taken.pdf"},
		b: {Filename: "b-renamed.pdf"},
	}, ModeRename, "")

	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.Equal(t, StatusRenamed, outcomes[1].Status)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("move")
	require.NoError(t, err)
	assert.Equal(t, ModeMove, m)
	_, err = ParseMode("copy")
	assert.Error(t, err)
}
