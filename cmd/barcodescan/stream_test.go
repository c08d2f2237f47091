package main

import (
	"strings"
	"testing"

	"github.com/kmerbase/barcodescan/kerr"
	"github.com/stretchr/testify/require"
)

func TestStreamCommandEndToEnd(t *testing.T) {
	// k=16 shard universe of 64 keys, key 0 present, everything else
	// absent, so a k0==kout scan should return the 63 absent keys.
	dir := buildShardDir(t, 16, 64, []uint64{0})
	gcHist := writeGCHist(t, dir, 16)

	var out string
	cc := NewStreamCommand()
	cc.SetArgs([]string{
		"--shards", dir,
		"--gc-hist", gcHist,
		"--limit", "5",
		"--window", "1",
		"--burst", "8",
	})
	out = captureStdout(t, func() {
		require.NoError(t, cc.Execute())
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.NotEmpty(t, lines)
	require.True(t, strings.HasPrefix(lines[0], "__META__\t"))
	fields := strings.Split(lines[0], "\t")
	require.Len(t, fields, 5)
	require.Equal(t, "16", fields[4]) // kout

	// The rest of the lines are 16-length ACGT k-mers, none of which is
	// the present key 0 ("AAAAAAAAAAAAAAAA").
	for _, kmerLine := range lines[1:] {
		require.Len(t, kmerLine, 16)
		require.NotEqual(t, "AAAAAAAAAAAAAAAA", kmerLine)
	}
}

func TestStreamCommandRejectsBadGCRange(t *testing.T) {
	dir := buildShardDir(t, 16, 64, nil)
	gcHist := writeGCHist(t, dir, 16)

	cc := NewStreamCommand()
	cc.SetArgs([]string{
		"--shards", dir,
		"--gc-hist", gcHist,
		"--gc-min", "80",
		"--gc-max", "20",
	})
	err := cc.Execute()
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.BadInput, kind)
}

func TestStreamCommandRejectsBadLimit(t *testing.T) {
	dir := buildShardDir(t, 16, 64, nil)
	gcHist := writeGCHist(t, dir, 16)

	cc := NewStreamCommand()
	cc.SetArgs([]string{
		"--shards", dir,
		"--gc-hist", gcHist,
		"--limit", "0",
	})
	err := cc.Execute()
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.BadInput, kind)
}

func TestStreamCommandRequiresGCHist(t *testing.T) {
	dir := buildShardDir(t, 16, 64, nil)

	cc := NewStreamCommand()
	cc.SetArgs([]string{"--shards", dir})
	err := cc.Execute()
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.BadInput, kind)
}

func TestStreamCommandRejectsExpansionBelowK18(t *testing.T) {
	dir := buildShardDir(t, 16, 64, nil)
	gcHist := writeGCHist(t, dir, 16)

	cc := NewStreamCommand()
	cc.SetArgs([]string{
		"--shards", dir,
		"--gc-hist", gcHist,
		"--construct_k", "17",
	})
	err := cc.Execute()
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.ConfigConflict, kind)
}

func TestStreamCommandRejectsConstructKBelowBaseK(t *testing.T) {
	dir := buildShardDir(t, 18, 64, nil)
	gcHist := writeGCHist(t, dir, 18)

	cc := NewStreamCommand()
	cc.SetArgs([]string{
		"--shards", dir,
		"--gc-hist", gcHist,
		"--construct_k", "17",
	})
	err := cc.Execute()
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.ConfigConflict, kind)
}
