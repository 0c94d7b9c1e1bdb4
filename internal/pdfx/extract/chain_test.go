package extract

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmogilev/docmill/internal/common"
	"github.com/dmogilev/docmill/internal/filex"
	"github.com/dmogilev/docmill/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func fixedTier(name string, rows [][]string, err error, calls *int) Tier {
	return Tier{
		Name: name,
		Extract: func(context.Context, *filex.Scope, string) ([][]string, error) {
			if calls != nil {
				*calls++
			}
			return rows, err
		},
	}
}

func TestChain_FirstUsableTierWins(t *testing.T) {
	var t2calls, t3calls int

	chain := NewChain(testLogger(),
		fixedTier("table", [][]string{{"a", "b"}}, nil, nil),
		fixedTier("text", [][]string{{"never"}}, nil, &t2calls),
		fixedTier("ocr", [][]string{{"never"}}, nil, &t3calls),
	)

	got, err := chain.Run(context.Background(), nil, "doc.pdf")
	require.NoError(t, err)
	require.Equal(t, "table", got.Tier)
	require.Equal(t, [][]string{{"a", "b"}}, got.Rows)
	require.Zero(t, t2calls, "tier 2 must not run when tier 1 succeeds")
	require.Zero(t, t3calls, "tier 3 must not run when tier 1 succeeds")
}

func TestChain_DegradesPastEmptyAndFailedTiers(t *testing.T) {
	var t1, t2, t3 int

	chain := NewChain(testLogger(),
		fixedTier("table", nil, nil, &t1),
		fixedTier("text", nil, errors.New("parser blew up"), &t2),
		fixedTier("ocr", [][]string{{"recovered line"}}, nil, &t3),
	)

	got, err := chain.Run(context.Background(), nil, "scan.pdf")
	require.NoError(t, err)
	require.Equal(t, "ocr", got.Tier)
	require.Equal(t, 1, t1)
	require.Equal(t, 1, t2)
	require.Equal(t, 1, t3)
}

func TestChain_AllTiersEmpty(t *testing.T) {
	chain := NewChain(testLogger(),
		fixedTier("table", nil, nil, nil),
		fixedTier("text", [][]string{{"", ""}}, nil, nil),
		fixedTier("ocr", nil, nil, nil),
	)

	_, err := chain.Run(context.Background(), nil, "blank.pdf")
	require.ErrorIs(t, err, common.ErrNoExtractableContent)
}

func TestChain_TierPanicDegrades(t *testing.T) {
	panicking := Tier{
		Name: "table",
		Extract: func(context.Context, *filex.Scope, string) ([][]string, error) {
			panic("malformed xref")
		},
	}

	chain := NewChain(testLogger(),
		panicking,
		fixedTier("text", [][]string{{"still fine"}}, nil, nil),
	)

	got, err := chain.Run(context.Background(), nil, "weird.pdf")
	require.NoError(t, err)
	require.Equal(t, "text", got.Tier)
}

func TestChain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain(testLogger(), fixedTier("table", [][]string{{"x"}}, nil, nil))
	_, err := chain.Run(ctx, nil, "doc.pdf")
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsTabular(t *testing.T) {
	require.False(t, isTabular(nil))
	require.False(t, isTabular([][]string{{"one", "two"}}))
	require.False(t, isTabular([][]string{{"one"}, {"two"}}))
	require.True(t, isTabular([][]string{{"a", "b"}, {"c", "d"}}))
	require.True(t, isTabular([][]string{{"hdr1", "hdr2"}, {"v1", "v2"}, {"caption"}}))
}

func TestLinesToRows(t *testing.T) {
	rows := linesToRows("first\n\n  second  \n\t\nthird")
	require.Equal(t, [][]string{{"first"}, {"second"}, {"third"}}, rows)
}
