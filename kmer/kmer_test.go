package kmer_test

import (
	"testing"

	"github.com/kmerbase/barcodescan/kmer"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := "CGCGCCAAAATTTTGGGG"
	v, err := kmer.Encode(s, len(s))
	require.NoError(t, err)
	require.Equal(t, s, kmer.Decode(v, len(s)))
}

func TestEncodeMSBIsLeftmostBase(t *testing.T) {
	// T=3 in the top 2 bits of a 2-mer "TA" (A=0).
	v, err := kmer.Encode("TA", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(0b1100), v)
}

func TestEncodeRejectsBadLength(t *testing.T) {
	_, err := kmer.Encode("ACG", 4)
	require.Error(t, err)
}

func TestEncodeRejectsNonACGT(t *testing.T) {
	_, err := kmer.Encode("ACGN", 4)
	require.Error(t, err)
}

func TestGCCount(t *testing.T) {
	v, err := kmer.Encode("ACGT", 4)
	require.NoError(t, err)
	require.Equal(t, 2, kmer.GCCount(v, 4))
}

func TestPassesGCPercent(t *testing.T) {
	v, err := kmer.Encode("ACGT", 4) // gc=2/4=50%
	require.NoError(t, err)
	require.True(t, kmer.PassesGCPercent(v, 4, 40, 60))
	require.False(t, kmer.PassesGCPercent(v, 4, 60, 100))
}

func TestReverseComplementString(t *testing.T) {
	rc, err := kmer.ReverseComplementString("ACGT")
	require.NoError(t, err)
	require.Equal(t, "ACGT", rc) // palindromic

	rc, err = kmer.ReverseComplementString("CGCGCC")
	require.NoError(t, err)
	require.Equal(t, "GGCGCG", rc)
}

func TestReverseComplementKeyMatchesStringVersion(t *testing.T) {
	s := "CGCGCCAAAATTTTGGGG"
	v, err := kmer.Encode(s, len(s))
	require.NoError(t, err)

	rcStr, err := kmer.ReverseComplementString(s)
	require.NoError(t, err)
	rcVal, err := kmer.Encode(rcStr, len(s))
	require.NoError(t, err)

	require.Equal(t, rcVal, kmer.ReverseComplement(v, len(s)))
}

func TestValidACGT(t *testing.T) {
	require.True(t, kmer.ValidACGT("acgtACGT"))
	require.False(t, kmer.ValidACGT("ACGN"))
}
