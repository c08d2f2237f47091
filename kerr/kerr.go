// Package kerr defines the fatal error kinds a barcodescan request can
// fail with. Every kind is a sentinel error; call site errors wrap one of
// these with github.com/pkg/errors so a single diagnostic line and a
// stable exit code can be recovered from any layer of the call stack.
package kerr

import (
	"errors"
)

// Kind identifies one of the fatal error categories from the design.
type Kind int

const (
	// Unknown is returned by Classify when no known Kind is present in
	// an error chain.
	Unknown Kind = iota
	BadInput
	BadCursor
	BadIndex
	ShardIo
	DecodeFail
	OutOfRange
	ConfigConflict
)

func (k Kind) String() string {
	switch k {
	case BadInput:
		return "BadInput"
	case BadCursor:
		return "BadCursor"
	case BadIndex:
		return "BadIndex"
	case ShardIo:
		return "ShardIo"
	case DecodeFail:
		return "DecodeFail"
	case OutOfRange:
		return "OutOfRange"
	case ConfigConflict:
		return "ConfigConflict"
	default:
		return "Unknown"
	}
}

// ExitCode maps a Kind to a process exit status. All kinds are fatal for
// the current request; the codes exist only to let a caller distinguish
// input errors from I/O errors in scripts.
func (k Kind) ExitCode() int {
	switch k {
	case Unknown:
		return 1
	default:
		return 10 + int(k)
	}
}

// Sentinel errors, one per Kind. Wrap these with errors.Wrap /
// fmt.Errorf("%w: ...", ...) to attach context while keeping errors.Is
// working.
var (
	ErrBadInput       = errors.New("bad input")
	ErrBadCursor      = errors.New("bad cursor")
	ErrBadIndex       = errors.New("bad index")
	ErrShardIo        = errors.New("shard io error")
	ErrDecodeFail     = errors.New("decode failed")
	ErrOutOfRange     = errors.New("out of range")
	ErrConfigConflict = errors.New("config conflict")
)

var sentinels = []struct {
	kind Kind
	err  error
}{
	{BadInput, ErrBadInput},
	{BadCursor, ErrBadCursor},
	{BadIndex, ErrBadIndex},
	{ShardIo, ErrShardIo},
	{DecodeFail, ErrDecodeFail},
	{OutOfRange, ErrOutOfRange},
	{ConfigConflict, ErrConfigConflict},
}

// Classify walks an error's chain (via errors.Is) and returns the first
// matching Kind, or (Unknown, false) if err doesn't wrap one of the
// sentinels above.
func Classify(err error) (Kind, bool) {
	if err == nil {
		return Unknown, false
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.kind, true
		}
	}
	return Unknown, false
}
