// Package cursor implements the BCW2 binary cursor format for resuming
// a windowed streaming search: little-endian fields, base64url encoded
// without padding.
package cursor

import (
	"encoding/base64"
	"encoding/binary"

	"github.com/kmerbase/barcodescan/kerr"
	"github.com/pkg/errors"
)

const magic = "BCW2"

const flagRandomAccess = 0x1

// NotStarted is the sentinel meaning "no key/anchor visited yet" for a
// lane's After or ParentAnchor field.
const NotStarted = ^uint64(0)

// LaneState is one lane's serialized scan position.
type LaneState struct {
	Active bool
	// Only meaningful if Active.
	PermPos uint32
	Mode    uint8 // 0 = k-only, 1 = expand

	// Mode 0:
	After uint64 // NotStarted means not begun

	// Mode 1:
	ParentAnchor uint64 // NotStarted means not begun
	ChildPresent bool
	L            uint8
	LeftIdx      uint64
	RightIdx     uint64
}

// State is the full window cursor.
type State struct {
	RandomAccess bool
	K0, Kout, D  uint8
	NumShards    uint32
	Seed         uint64
	NextPermPos  uint32
	Window       uint16
	Burst        uint16
	Lanes        []LaneState
}

type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) bool8(v bool) { if v { w.u8(1) } else { w.u8(0) } }
func (w *byteWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *byteWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}
func (w *byteWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Encode serializes a State to its base64url (no padding) token.
func Encode(s *State) string {
	w := &byteWriter{buf: make([]byte, 0, 64+len(s.Lanes)*32)}
	w.buf = append(w.buf, magic...)

	var flags uint8
	if s.RandomAccess {
		flags |= flagRandomAccess
	}
	w.u8(flags)
	w.u8(s.K0)
	w.u8(s.Kout)
	w.u8(s.D)
	w.u32(s.NumShards)
	w.u64(s.Seed)
	w.u32(s.NextPermPos)
	w.u16(s.Window)
	w.u16(s.Burst)
	w.u16(uint16(len(s.Lanes)))

	for _, ln := range s.Lanes {
		w.bool8(ln.Active)
		if !ln.Active {
			continue
		}
		w.u32(ln.PermPos)
		w.u8(ln.Mode)
		if ln.Mode == 0 {
			w.u64(ln.After)
		} else {
			w.u64(ln.ParentAnchor)
			w.bool8(ln.ChildPresent)
			if ln.ChildPresent {
				w.u8(ln.L)
				w.u64(ln.LeftIdx)
				w.u64(ln.RightIdx)
			}
		}
	}

	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(w.buf)
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return errors.Wrap(kerr.ErrBadCursor, "truncated cursor")
	}
	return nil
}

func (r *byteReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) bool8() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *byteReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Decode parses a base64url cursor token. Random input decodes either to
// a BadCursor error or a structurally valid State -- never a panic.
func Decode(token string) (*State, error) {
	raw, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(token)
	if err != nil {
		return nil, errors.Wrap(kerr.ErrBadCursor, "invalid base64url")
	}
	if len(raw) < 4 {
		return nil, errors.Wrap(kerr.ErrBadCursor, "truncated cursor")
	}
	if string(raw[0:4]) != magic {
		return nil, errors.Wrap(kerr.ErrBadCursor, "bad magic")
	}

	r := &byteReader{buf: raw, pos: 4}
	s := &State{}

	flags, err := r.u8()
	if err != nil {
		return nil, err
	}
	s.RandomAccess = flags&flagRandomAccess != 0

	if s.K0, err = r.u8(); err != nil {
		return nil, err
	}
	if s.Kout, err = r.u8(); err != nil {
		return nil, err
	}
	if s.D, err = r.u8(); err != nil {
		return nil, err
	}
	if s.NumShards, err = r.u32(); err != nil {
		return nil, err
	}
	if s.Seed, err = r.u64(); err != nil {
		return nil, err
	}
	if s.NextPermPos, err = r.u32(); err != nil {
		return nil, err
	}
	if s.Window, err = r.u16(); err != nil {
		return nil, err
	}
	if s.Burst, err = r.u16(); err != nil {
		return nil, err
	}
	laneCount, err := r.u16()
	if err != nil {
		return nil, err
	}

	if laneCount > 0 {
		s.Lanes = make([]LaneState, laneCount)
	}
	for i := range s.Lanes {
		ln := &s.Lanes[i]
		if ln.Active, err = r.bool8(); err != nil {
			return nil, err
		}
		if !ln.Active {
			continue
		}
		if ln.PermPos, err = r.u32(); err != nil {
			return nil, err
		}
		if ln.Mode, err = r.u8(); err != nil {
			return nil, err
		}
		if ln.Mode == 0 {
			if ln.After, err = r.u64(); err != nil {
				return nil, err
			}
		} else {
			if ln.ParentAnchor, err = r.u64(); err != nil {
				return nil, err
			}
			if ln.ChildPresent, err = r.bool8(); err != nil {
				return nil, err
			}
			if ln.ChildPresent {
				if ln.L, err = r.u8(); err != nil {
					return nil, err
				}
				if ln.LeftIdx, err = r.u64(); err != nil {
					return nil, err
				}
				if ln.RightIdx, err = r.u64(); err != nil {
					return nil, err
				}
			}
		}
	}

	return s, nil
}

// Validate checks a resumed cursor against the current request's
// parameters, per spec.md §4.8/§9: any mismatch is a hard BadCursor
// error, and a cursor is never "upgraded" across a numShards change.
func (s *State) Validate(numShards int, k0, kout, window, burst int, randomAccess bool) error {
	if s.NumShards != uint32(numShards) {
		return errors.Wrapf(kerr.ErrBadCursor, "cursor numShards=%d, request has %d", s.NumShards, numShards)
	}
	if int(s.K0) != k0 || int(s.Kout) != kout {
		return errors.Wrapf(kerr.ErrBadCursor, "cursor k0/kout=%d/%d, request has %d/%d", s.K0, s.Kout, k0, kout)
	}
	if int(s.Window) != window {
		return errors.Wrapf(kerr.ErrBadCursor, "cursor window=%d, request has %d", s.Window, window)
	}
	if int(s.Burst) != burst {
		return errors.Wrapf(kerr.ErrBadCursor, "cursor burst=%d, request has %d", s.Burst, burst)
	}
	if s.RandomAccess != randomAccess {
		return errors.Wrap(kerr.ErrBadCursor, "cursor random_access flag mismatch")
	}
	return nil
}
