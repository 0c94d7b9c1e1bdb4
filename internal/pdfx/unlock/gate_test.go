package unlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/require"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func makePDF(t *testing.T, dir string, pageCount int) string {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetFont("Helvetica", "", 12)
	for i := 0; i < pageCount; i++ {
		doc.AddPage()
		doc.Cell(40, 10, fmt.Sprintf("page %d", i+1))
	}
	p := filepath.Join(dir, fmt.Sprintf("doc-%d.pdf", pageCount))
	require.NoError(t, doc.OutputFileAndClose(p))
	return p
}

func TestUnlock_PlainPDF(t *testing.T) {
	scope, err := filex.NewScope(t.TempDir())
	require.NoError(t, err)
	defer scope.Close()

	in := makePDF(t, t.TempDir(), 3)

	gate := NewGate(testLogger())
	wd, err := gate.Unlock(context.Background(), scope, in, "doc-3.pdf", "")
	require.NoError(t, err)
	require.Equal(t, 3, wd.Pages)
	require.NotEqual(t, in, wd.Path, "working copy must not alias the original")

	// original untouched
	orig, err := os.ReadFile(in)
	require.NoError(t, err)
	require.NotEmpty(t, orig)
}

func TestUnlock_GarbageInputFailsValidation(t *testing.T) {
	scope, err := filex.NewScope(t.TempDir())
	require.NoError(t, err)
	defer scope.Close()

	in := filepath.Join(t.TempDir(), "junk.pdf")
	require.NoError(t, os.WriteFile(in, []byte("this is not a pdf"), 0o600))

	gate := NewGate(testLogger())
	_, err = gate.Unlock(context.Background(), scope, in, "junk.pdf", "")
	require.ErrorIs(t, err, common.ErrValidation)
	require.False(t, errors.Is(err, common.ErrEncryptedDocument))
}

func TestUnlock_TruncatedPDFFailsValidation(t *testing.T) {
	scope, err := filex.NewScope(t.TempDir())
	require.NoError(t, err)
	defer scope.Close()

	dir := t.TempDir()
	whole, err := os.ReadFile(makePDF(t, dir, 2))
	require.NoError(t, err)

	// valid header, body cut off mid-stream
	in := filepath.Join(dir, "cut.pdf")
	require.NoError(t, os.WriteFile(in, whole[:len(whole)/2], 0o600))

	gate := NewGate(testLogger())
	_, err = gate.Unlock(context.Background(), scope, in, "cut.pdf", "")
	require.Error(t, err)
	require.False(t, errors.Is(err, common.ErrEncryptedDocument))
}

func TestUnlock_EncryptedWrongPassword(t *testing.T) {
	scope, err := filex.NewScope(t.TempDir())
	require.NoError(t, err)
	defer scope.Close()

	dir := t.TempDir()
	plain := makePDF(t, dir, 1)

	conf := model.NewDefaultConfiguration()
	conf.UserPW = "secret"
	conf.OwnerPW = "secret"
	locked := filepath.Join(dir, "locked.pdf")
	require.NoError(t, api.EncryptFile(plain, locked, conf))

	gate := NewGate(testLogger())

	_, err = gate.Unlock(context.Background(), scope, locked, "locked.pdf", "nope")
	require.ErrorIs(t, err, common.ErrEncryptedDocument)

	wd, err := gate.Unlock(context.Background(), scope, locked, "locked.pdf", "secret")
	require.NoError(t, err)
	require.Equal(t, 1, wd.Pages)
}

func TestStage_CopiesInputIntoScope(t *testing.T) {
	scope, err := filex.NewScope(t.TempDir())
	require.NoError(t, err)
	defer scope.Close()

	in := filepath.Join(t.TempDir(), "photo.JPG")
	require.NoError(t, os.WriteFile(in, []byte{0xFF, 0xD8, 0xFF}, 0o600))

	gate := NewGate(testLogger())
	wd, err := gate.Stage(context.Background(), scope, in, "photo.JPG")
	require.NoError(t, err)
	require.Equal(t, 0, wd.Pages)
	require.Equal(t, ".jpg", filepath.Ext(wd.Path))

	got, err := os.ReadFile(wd.Path)
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0xD8, 0xFF}, got)
}

func TestUnlock_CancelledContext(t *testing.T) {
	scope, err := filex.NewScope(t.TempDir())
	require.NoError(t, err)
	defer scope.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gate := NewGate(testLogger())
	_, err = gate.Unlock(ctx, scope, "whatever.pdf", "whatever.pdf", "")
	require.ErrorIs(t, err, context.Canceled)
}
