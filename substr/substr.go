// Package substr compiles a DNA substring (and optionally its reverse
// complement) into packed 2-bit mask/bits patterns that can be tested
// against a k-mer key at every offset in O(1) per pattern.
package substr

import (
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/kmerbase/barcodescan/kmer"
	"github.com/pkg/errors"
)

// Pattern is one (mask, bits) pair: a candidate key v matches iff
// (v ^ bits) & mask == 0.
type Pattern struct {
	Mask uint64
	Bits uint64
}

// Compile builds the pattern list for substring pat (length m<=kout)
// against kout-mers, at every offset [0, kout-m]. When includeRC is set
// and the reverse complement of pat differs from pat, patterns for the
// reverse complement are appended too (a palindromic pat is not
// duplicated).
func Compile(kout int, pat string, includeRC bool) ([]Pattern, error) {
	if pat == "" {
		return nil, nil
	}
	if len(pat) > kout {
		return nil, errors.Wrapf(kerr.ErrBadInput, "substring %q longer than output k=%d", pat, kout)
	}
	if !kmer.ValidACGT(pat) {
		return nil, errors.Wrapf(kerr.ErrBadInput, "substring %q contains non-ACGT base", pat)
	}

	var pats []Pattern
	pats = append(pats, patternsFor(kout, pat)...)

	if includeRC {
		rc, err := kmer.ReverseComplementString(pat)
		if err != nil {
			return nil, err
		}
		if rc != pat {
			pats = append(pats, patternsFor(kout, rc)...)
		}
	}
	return pats, nil
}

func patternsFor(kout int, pat string) []Pattern {
	m := len(pat)
	subBits, _ := kmer.Encode(pat, m) // already validated ACGT above

	var baseMask uint64
	if m >= 32 {
		baseMask = ^uint64(0)
	} else {
		baseMask = (uint64(1) << uint(2*m)) - 1
	}

	pats := make([]Pattern, 0, kout-m+1)
	for pos := 0; pos <= kout-m; pos++ {
		shift := uint(2 * (kout - m - pos))
		pats = append(pats, Pattern{
			Mask: baseMask << shift,
			Bits: subBits << shift,
		})
	}
	return pats
}

// Matches reports whether v contains any compiled pattern as a
// contiguous 2-bit substring.
func Matches(v uint64, pats []Pattern) bool {
	for _, p := range pats {
		if (v^p.Bits)&p.Mask == 0 {
			return true
		}
	}
	return false
}
