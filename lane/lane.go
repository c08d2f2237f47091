// Package lane implements one shard-bound scan lane: refilling its
// output buffer by walking a shard's key space (in k0==kout mode) or by
// expanding absent k0-anchors into kout-mers (in kout>k0 mode), applying
// the GC% and substring/reverse-complement leaf filters as it goes.
package lane

import (
	"github.com/kmerbase/barcodescan/expand"
	"github.com/kmerbase/barcodescan/kbit"
	"github.com/kmerbase/barcodescan/kmer"
	"github.com/kmerbase/barcodescan/substr"
)

// NotStarted mirrors cursor.NotStarted / expand.NotStarted: no key or
// anchor visited yet on this shard.
const NotStarted = ^uint64(0)

// Filter bundles the leaf-level predicates applied to every candidate
// kout-mer as it's produced.
type Filter struct {
	GCMinPct, GCMaxPct int
	Patterns           []substr.Pattern // nil disables the substring filter
}

// LeafOK reports whether v (a kout-mer) passes the GC% range and, if
// set, the substring/reverse-complement filter.
func LeafOK(v uint64, kout int, f Filter) bool {
	if !kmer.PassesGCPercent(v, kout, f.GCMinPct, f.GCMaxPct) {
		return false
	}
	if f.Patterns != nil && !substr.Matches(v, f.Patterns) {
		return false
	}
	return true
}

// Lane is one window slot's live scan state, bound to a single shard.
type Lane struct {
	Active   bool
	PermPos  uint32
	ShardIdx int
	Shard    *kbit.Shard

	// Mode 0 (kout == k0): resume point is the last key scanned.
	After uint64

	// Mode 1 (kout > k0): resume point is the (parent, L, left, right)
	// position within the expansion state machine.
	ParentAnchor uint64
	ChildPresent bool
	L            uint8
	LeftIdx      uint64
	RightIdx     uint64

	Buf    []uint64
	BufPos int
}

// ClearBuf discards any buffered-but-unemitted values.
func (ln *Lane) ClearBuf() {
	ln.Buf = ln.Buf[:0]
	ln.BufPos = 0
}

// HasBuffered reports whether the lane has an unconsumed value ready.
func (ln *Lane) HasBuffered() bool {
	return ln.BufPos < len(ln.Buf)
}

// ResetKOnly (re)initializes the lane for k0==kout scanning from scratch.
func (ln *Lane) ResetKOnly() {
	ln.After = NotStarted
}

// ResetExpand (re)initializes the lane for kout>k0 expansion scanning
// from scratch.
func (ln *Lane) ResetExpand() {
	ln.ParentAnchor = NotStarted
	ln.ChildPresent = false
	ln.L = 0
	ln.LeftIdx = 0
	ln.RightIdx = 0
}

// Refill scans forward from the lane's current resume point until its
// buffer holds refillTarget values or the shard's [start,end) range is
// exhausted, in which case Active is cleared. k0==kout uses linear scan
// over the shard's key range; kout>k0 walks absent k0-anchors via the
// expand state machine.
func (ln *Lane) Refill(k0, kout int, f Filter, refillTarget int, start, end uint64) {
	ln.ClearBuf()
	if !ln.Active || ln.Shard == nil {
		return
	}

	if kout == k0 {
		ln.refillKOnly(kout, f, refillTarget, start, end)
		return
	}
	ln.refillExpand(k0, kout, f, refillTarget, start, end)
}

func (ln *Lane) refillKOnly(kout int, f Filter, refillTarget int, start, end uint64) {
	v := start
	if ln.After != NotStarted {
		v = ln.After + 1
	}

	for ; v < end && len(ln.Buf) < refillTarget; v++ {
		if ln.Shard.Contains(v) {
			continue
		}
		if !LeafOK(v, kout, f) {
			continue
		}
		ln.Buf = append(ln.Buf, v)
	}

	if v == end {
		ln.Active = false
	} else {
		ln.After = v - 1
	}
}

func (ln *Lane) refillExpand(k0, kout int, f Filter, refillTarget int, start, end uint64) {
	d := kout - k0

	for len(ln.Buf) < refillTarget {
		var parentB uint64
		switch {
		case ln.ParentAnchor == NotStarted:
			parentB = start
		case ln.ChildPresent:
			parentB = ln.ParentAnchor
		default:
			parentB = ln.ParentAnchor + 1
		}

		for parentB < end && ln.Shard.Contains(parentB) {
			parentB++
		}
		if parentB >= end {
			ln.Active = false
			return
		}

		var Lcur uint8
		var li, ri uint64
		if ln.ChildPresent && ln.ParentAnchor == parentB {
			Lcur, li, ri = ln.L, ln.LeftIdx, ln.RightIdx
		} else {
			Lcur, li, ri = expand.InitFirst(d)
		}

		exhaustedParent := false
		for !exhaustedParent && len(ln.Buf) < refillTarget {
			vX := expand.Value(parentB, k0, kout, int(Lcur), li, ri)
			if LeafOK(vX, kout, f) {
				ln.Buf = append(ln.Buf, vX)
			}
			if !expand.Advance(d, &Lcur, &li, &ri) {
				exhaustedParent = true
			}
		}

		if !exhaustedParent {
			// Buffer full mid-parent: persist the next child's position.
			ln.ParentAnchor = parentB
			ln.ChildPresent = true
			ln.L = Lcur
			ln.LeftIdx = li
			ln.RightIdx = ri
			return
		}

		ln.ParentAnchor = parentB
		ln.ChildPresent = false
		ln.L, ln.LeftIdx, ln.RightIdx = 0, 0, 0
	}
}

// Take pops the next buffered value, marking the k0==kout resume point
// (expand mode's resume point is already tracked by Refill).
func (ln *Lane) Take(k0, kout int) uint64 {
	v := ln.Buf[ln.BufPos]
	ln.BufPos++
	if kout == k0 {
		ln.After = v
	}
	return v
}
