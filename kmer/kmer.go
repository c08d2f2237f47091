// Package kmer implements the 2-bit DNA k-mer encoding shared by every
// query path: A=0, C=1, G=2, T=3, most-significant 2 bits hold the
// leftmost base.
package kmer

import (
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/pkg/errors"
)

var baseToDigit [256]int8
var digitToBase = [4]byte{'A', 'C', 'G', 'T'}
var digitToComplement = [4]uint64{3, 2, 1, 0} // complement of A,C,G,T digits

func init() {
	for i := range baseToDigit {
		baseToDigit[i] = -1
	}
	baseToDigit['A'], baseToDigit['a'] = 0, 0
	baseToDigit['C'], baseToDigit['c'] = 1, 1
	baseToDigit['G'], baseToDigit['g'] = 2, 2
	baseToDigit['T'], baseToDigit['t'] = 3, 3
}

// MaxK is the largest k that fits in a uint64 key (2 bits/base).
const MaxK = 32

// Encode converts a DNA string of length k into its 2k-bit key. It
// rejects any non-ACGT character or a length that doesn't match k.
func Encode(s string, k int) (uint64, error) {
	if len(s) != k {
		return 0, errors.Wrapf(kerr.ErrBadInput, "kmer %q has length %d, want %d", s, len(s), k)
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		d := baseToDigit[s[i]]
		if d < 0 {
			return 0, errors.Wrapf(kerr.ErrBadInput, "kmer %q contains non-ACGT base %q", s, s[i])
		}
		v = (v << 2) | uint64(d)
	}
	return v, nil
}

// Decode renders a 2k-bit key back into its k-length DNA string.
func Decode(v uint64, k int) string {
	b := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		b[i] = digitToBase[v&3]
		v >>= 2
	}
	return string(b)
}

// GCCount returns the number of 2-bit digits in v (over k bases) equal to
// C or G (digit values 1 or 2).
func GCCount(v uint64, k int) int {
	gc := 0
	for i := 0; i < k; i++ {
		d := v & 3
		if d == 1 || d == 2 {
			gc++
		}
		v >>= 2
	}
	return gc
}

// PassesGCPercent implements the exact-integer GC% range check from the
// leaf test: gc*100 must fall within [gcMinPct*k, gcMaxPct*k].
func PassesGCPercent(v uint64, k, gcMinPct, gcMaxPct int) bool {
	lhs := GCCount(v, k) * 100
	lo := gcMinPct * k
	hi := gcMaxPct * k
	return lhs >= lo && lhs <= hi
}

// ReverseComplementString returns the reverse complement of a DNA string.
func ReverseComplementString(s string) (string, error) {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		d := baseToDigit[s[i]]
		if d < 0 {
			return "", errors.Wrapf(kerr.ErrBadInput, "string %q contains non-ACGT base %q", s, s[i])
		}
		out[len(s)-1-i] = digitToBase[digitToComplement[d]]
	}
	return string(out), nil
}

// ReverseComplement returns the reverse complement of a k-length encoded
// key.
func ReverseComplement(v uint64, k int) uint64 {
	var out uint64
	for i := 0; i < k; i++ {
		d := v & 3
		out = (out << 2) | digitToComplement[d]
		v >>= 2
	}
	return out
}

// ValidACGT reports whether s contains only (upper or lower case) ACGT
// characters.
func ValidACGT(s string) bool {
	for i := 0; i < len(s); i++ {
		if baseToDigit[s[i]] < 0 {
			return false
		}
	}
	return true
}
