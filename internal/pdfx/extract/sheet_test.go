package extract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook_RoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "table.xlsx")
	table := &Table{
		Rows: [][]string{
			{"name", "amount"},
			{"paper", "12"},
			{"ink", "3"},
		},
		Tier: "table",
	}

	require.NoError(t, WriteWorkbook(out, table))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Equal(t, table.Rows, rows)

	visible, err := f.GetSheetVisible(sheetName)
	require.NoError(t, err)
	require.True(t, visible, "workbook must have a visible sheet")
}

func TestEnsureVisibleSheet_ForcesFirstVisible(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	// Hide everything we can; some versions refuse to hide the last
	// visible sheet, which is fine for this test.
	_ = f.SetSheetVisible("Sheet1", false)
	_ = f.SetSheetVisible("Other", false, true)

	require.NoError(t, ensureVisibleSheet(f))

	names := f.GetSheetList()
	anyVisible := false
	for _, n := range names {
		v, err := f.GetSheetVisible(n)
		require.NoError(t, err)
		anyVisible = anyVisible || v
	}
	require.True(t, anyVisible, "at least one sheet must be visible")
}
