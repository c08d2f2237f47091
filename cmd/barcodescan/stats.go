package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

type statsInfo struct {
	ShardsDir         string
	GCHist            string
	Threads           int
	Limit             int
	Window            int
	Burst             int
	RefillChunk       int
	K0, Kout          int
	RandomAccess      bool
	Seed              uint64
	GCMinPct, GCMaxPct int
	Substring         string
	ReverseComplement bool
	Returned          int
	HasMore           bool
	NextCursor        string
	ShardsLoaded      int
	ScanTime          time.Duration
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// printStats renders the request/response summary as a [stats] table on
// w, the way the original engine's trailing [INFO] diagnostic block did,
// reimplemented with a real table-rendering library.
func printStats(w io.Writer, s statsInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"field", "value"})

	t.AppendRow(table.Row{"shards dir", s.ShardsDir})
	t.AppendRow(table.Row{"gc hist", s.GCHist})
	t.AppendRow(table.Row{"threads", s.Threads})
	t.AppendRow(table.Row{"limit", s.Limit})
	t.AppendRow(table.Row{"window / burst", fmt.Sprintf("%d / %d", s.Window, s.Burst)})
	t.AppendRow(table.Row{"refill_chunk", s.RefillChunk})
	t.AppendRow(table.Row{"k0 / kout", fmt.Sprintf("%d / %d", s.K0, s.Kout)})
	t.AppendRow(table.Row{"random access", yesNo(s.RandomAccess)})
	if s.RandomAccess {
		t.AppendRow(table.Row{"ra seed", s.Seed})
	}
	t.AppendRow(table.Row{"gc% range", fmt.Sprintf("%d-%d", s.GCMinPct, s.GCMaxPct)})
	sub := s.Substring
	if sub == "" {
		sub = "(none)"
	}
	t.AppendRow(table.Row{"substring", sub})
	t.AppendRow(table.Row{"reverse complement", yesNo(s.ReverseComplement)})
	t.AppendRow(table.Row{"returned", s.Returned})
	t.AppendRow(table.Row{"has more", yesNo(s.HasMore)})
	cur := s.NextCursor
	if cur == "" {
		cur = "(none)"
	}
	t.AppendRow(table.Row{"next cursor", cur})
	t.AppendRow(table.Row{"shards loaded", s.ShardsLoaded})
	t.AppendRow(table.Row{"scan time", s.ScanTime})

	fmt.Fprintln(w, "[stats]")
	t.Render()
}
