// Package kbit implements the KBITv1 shard file format: a 64-byte
// little-endian header followed by either a dense bit-array payload
// (flags=1) or a portable compressed-bitmap payload (flags=2).
package kbit

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/kmerbase/barcodescan/kerr"
	"github.com/pkg/errors"
)

const (
	headerSize = 64
	magic      = "KBITv1\x00"

	// FlagsDense marks a bit-packed payload of ceil(total_bits/8) bytes.
	FlagsDense = 1
	// FlagsPortable marks a portable roaring64 bitmap payload.
	FlagsPortable = 2
)

// Header is the 64-byte KBITv1 shard header.
type Header struct {
	TotalBits  uint64
	Ones       uint64
	K          uint64
	Seed       uint64
	Flags      uint64
	PayloadLen uint64
}

// Shard is a loaded KBITv1 shard: its header plus a queryable set of
// present keys, backed either by a dense bit array or a roaring64
// bitmap.
type Shard struct {
	Header Header

	dense  []byte // present iff Header.Flags == FlagsDense
	bitmap *roaring64.Bitmap
}

// Contains reports whether key is present in the shard's key set.
func (s *Shard) Contains(key uint64) bool {
	if s.dense != nil {
		if key >= s.Header.TotalBits {
			return false
		}
		return s.dense[key>>3]&(1<<(key&7)) != 0
	}
	return s.bitmap.Contains(key)
}

// Ones returns the header's recorded popcount.
func (s *Shard) Ones() uint64 { return s.Header.Ones }

// K returns the k-mer length this shard was generated for.
func (s *Shard) K() int { return int(s.Header.K) }

// TotalBits returns the size of the shard's key universe slice.
func (s *Shard) TotalBits() uint64 { return s.Header.TotalBits }

func readHeader(r io.Reader) (Header, error) {
	var raw [headerSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return Header{}, errors.Wrap(kerr.ErrShardIo, "short header read")
	}
	if !bytes.Equal(raw[0:8], []byte(magic)) {
		return Header{}, errors.Wrap(kerr.ErrShardIo, "bad magic")
	}
	h := Header{
		TotalBits:  binary.LittleEndian.Uint64(raw[8:16]),
		Ones:       binary.LittleEndian.Uint64(raw[16:24]),
		K:          binary.LittleEndian.Uint64(raw[24:32]),
		Seed:       binary.LittleEndian.Uint64(raw[32:40]),
		Flags:      binary.LittleEndian.Uint64(raw[40:48]),
		PayloadLen: binary.LittleEndian.Uint64(raw[48:56]),
	}
	return h, nil
}

// Read parses a KBITv1 shard from r.
func Read(r io.Reader) (*Shard, error) {
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	switch h.Flags {
	case FlagsDense:
		want := int((h.TotalBits + 7) / 8)
		buf := make([]byte, want)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(kerr.ErrShardIo, "truncated dense payload")
		}
		return &Shard{Header: h, dense: buf}, nil

	case FlagsPortable:
		payload := make([]byte, h.PayloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.Wrap(kerr.ErrShardIo, "truncated portable payload")
		}
		bm := roaring64.New()
		if _, err := bm.ReadFrom(bytes.NewReader(payload)); err != nil {
			return nil, errors.Wrap(kerr.ErrDecodeFail, "roaring64 deserialize")
		}
		return &Shard{Header: h, bitmap: bm}, nil

	default:
		return nil, errors.Wrapf(kerr.ErrShardIo, "unsupported flags=%d", h.Flags)
	}
}

// ReadFile opens and parses the KBITv1 shard at path.
func ReadFile(path string) (*Shard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(kerr.ErrShardIo, "open %s: %v", path, err)
	}
	defer f.Close()
	s, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return s, nil
}

func writeHeader(w io.Writer, h Header) error {
	var raw [headerSize]byte
	copy(raw[0:8], magic)
	binary.LittleEndian.PutUint64(raw[8:16], h.TotalBits)
	binary.LittleEndian.PutUint64(raw[16:24], h.Ones)
	binary.LittleEndian.PutUint64(raw[24:32], h.K)
	binary.LittleEndian.PutUint64(raw[32:40], h.Seed)
	binary.LittleEndian.PutUint64(raw[40:48], h.Flags)
	binary.LittleEndian.PutUint64(raw[48:56], h.PayloadLen)
	_, err := w.Write(raw[:])
	return err
}

// WriteDense writes a dense KBITv1 shard containing exactly the keys in
// present, for a universe of totalBits keys. It exists to support
// round-trip tests; production shards come from the offline generator.
func WriteDense(w io.Writer, k int, seed uint64, totalBits uint64, present []uint64) error {
	buf := make([]byte, (totalBits+7)/8)
	for _, key := range present {
		if key >= totalBits {
			return errors.Wrapf(kerr.ErrBadInput, "key %d out of range for totalBits=%d", key, totalBits)
		}
		buf[key>>3] |= 1 << (key & 7)
	}
	h := Header{
		TotalBits:  totalBits,
		Ones:       uint64(len(present)),
		K:          uint64(k),
		Seed:       seed,
		Flags:      FlagsDense,
		PayloadLen: uint64(len(buf)),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	_, err := w.Write(buf)
	return err
}

// WritePortable writes a portable (roaring64) KBITv1 shard containing
// exactly the keys in present.
func WritePortable(w io.Writer, k int, seed uint64, totalBits uint64, present []uint64) error {
	bm := roaring64.New()
	for _, key := range present {
		bm.Add(key)
	}
	var payload bytes.Buffer
	if _, err := bm.WriteTo(&payload); err != nil {
		return errors.Wrap(err, "serializing roaring64 payload")
	}
	h := Header{
		TotalBits:  totalBits,
		Ones:       bm.GetCardinality(),
		K:          uint64(k),
		Seed:       seed,
		Flags:      FlagsPortable,
		PayloadLen: uint64(payload.Len()),
	}
	if err := writeHeader(w, h); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}
