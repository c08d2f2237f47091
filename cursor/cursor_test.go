package cursor_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kmerbase/barcodescan/cursor"
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/stretchr/testify/require"
)

func sampleState() *cursor.State {
	return &cursor.State{
		RandomAccess: true,
		K0:           18,
		Kout:         20,
		D:            2,
		NumShards:    4,
		Seed:         0xDEADBEEF,
		NextPermPos:  2,
		Window:       3,
		Burst:        8,
		Lanes: []cursor.LaneState{
			{Active: true, PermPos: 0, Mode: 0, After: 12345},
			{Active: false},
			{
				Active:       true,
				PermPos:      1,
				Mode:         1,
				ParentAnchor: 999,
				ChildPresent: true,
				L:            1,
				LeftIdx:      2,
				RightIdx:     0,
			},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	s := sampleState()
	tok := cursor.Encode(s)
	require.NotEmpty(t, tok)

	got, err := cursor.Decode(tok)
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("decoded state mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripEmptyLanes(t *testing.T) {
	s := &cursor.State{K0: 18, Kout: 18, NumShards: 1, Window: 1, Burst: 4}
	tok := cursor.Encode(s)
	got, err := cursor.Decode(tok)
	require.NoError(t, err)
	if diff := cmp.Diff(s, got); diff != "" {
		t.Errorf("decoded state mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripModeZeroNotStarted(t *testing.T) {
	s := &cursor.State{
		K0: 18, Kout: 18, NumShards: 2, Window: 1, Burst: 4,
		Lanes: []cursor.LaneState{{Active: true, After: cursor.NotStarted}},
	}
	tok := cursor.Encode(s)
	got, err := cursor.Decode(tok)
	require.NoError(t, err)
	require.Equal(t, cursor.NotStarted, got.Lanes[0].After)
}

func TestDecodeRejectsBadBase64(t *testing.T) {
	_, err := cursor.Decode("not!valid!base64!!!")
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.BadCursor, kind)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	s := sampleState()
	tok := cursor.Encode(s)
	// Flip the token so it decodes to different bytes but stays valid
	// base64url; easiest reliable corruption is truncation of the magic.
	_, err := cursor.Decode(tok[1:])
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.BadCursor, kind)
}

func TestDecodeRejectsTruncated(t *testing.T) {
	s := sampleState()
	tok := cursor.Encode(s)
	_, err := cursor.Decode(tok[:len(tok)-4])
	require.Error(t, err)
	kind, ok := kerr.Classify(err)
	require.True(t, ok)
	require.Equal(t, kerr.BadCursor, kind)
}

func TestValidateDetectsMismatch(t *testing.T) {
	s := sampleState()
	require.NoError(t, s.Validate(4, 18, 20, 3, 8, true))

	require.Error(t, s.Validate(5, 18, 20, 3, 8, true))
	require.Error(t, s.Validate(4, 19, 20, 3, 8, true))
	require.Error(t, s.Validate(4, 18, 20, 4, 8, true))
	require.Error(t, s.Validate(4, 18, 20, 3, 9, true))
	require.Error(t, s.Validate(4, 18, 20, 3, 8, false))
}
