package pricefile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quotestub/internal/mockquote"
	"quotestub/internal/pricefile"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestLoadAndApply(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prices.yaml")
	writeFile(t, path, "prices:\n  BTC: 15000\n  usdt: 0.9991\ninclude_usdt: true\n")

	f, err := pricefile.Load(path)
	require.NoError(t, err)

	state := mockquote.NewState(16500, 0.9998, false)
	require.NoError(t, f.Apply(state))

	snap := state.Snapshot()
	require.InDelta(t, 15000, snap.BTC, 0)
	require.InDelta(t, 0.9991, snap.USDT, 0)
	require.True(t, snap.IncludeUSDT)
}

func TestApply_RejectsWholeFileOnBadEntry(t *testing.T) {
	t.Parallel()

	f := &pricefile.File{Prices: map[string]float64{"BTC": 1, "ETH": 2}}
	state := mockquote.NewState(16500, 0.9998, false)

	require.ErrorIs(t, f.Apply(state), mockquote.ErrUnknownSymbol)
	require.InDelta(t, 16500, state.Snapshot().BTC, 0)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := pricefile.Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "read price file")

	bad := filepath.Join(dir, "bad.yaml")
	writeFile(t, bad, "prices: [1, 2\n")
	_, err = pricefile.Load(bad)
	require.ErrorContains(t, err, "parse price file")
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "prices.yaml")
	writeFile(t, path, "prices:\n  BTC: 16500\n")

	state := mockquote.NewState(16500, 0.9998, false)
	w, err := pricefile.NewWatcher(path, state, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, path, "prices:\n  BTC: 12345\n")
	require.Eventually(t, func() bool {
		return state.Snapshot().BTC == 12345
	}, 3*time.Second, 20*time.Millisecond)

	// A broken edit keeps the last good prices.
	writeFile(t, path, "prices: {BTC: nope}\n")
	time.Sleep(400 * time.Millisecond)
	require.InDelta(t, 12345, state.Snapshot().BTC, 0)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "prices.yaml")
	writeFile(t, path, "prices:\n  BTC: 16500\n")

	state := mockquote.NewState(16500, 0.9998, false)
	w, err := pricefile.NewWatcher(path, state, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFile(t, filepath.Join(dir, "other.yaml"), "prices:\n  BTC: 1\n")
	time.Sleep(400 * time.Millisecond)
	require.InDelta(t, 16500, state.Snapshot().BTC, 0)
}
