// Package staticpath provides a fixed-capacity byte encoding of filesystem
// paths, suitable for transmission as a data-channel payload with a stable
// wire shape. It carries no coordination logic.
//
// On Windows paths must be valid UTF-8; construction and decoding enforce
// that. On Unix any byte sequence that fits the capacity is accepted.
package staticpath

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxLen is the capacity of a [StaticPath] in bytes. Paths longer than this
// cannot be represented.
const MaxLen = 4096

// FrameLen is the size of the fixed binary frame produced by
// [StaticPath.MarshalBinary]: a 2-byte little-endian length followed by
// MaxLen payload bytes.
const FrameLen = 2 + MaxLen

// TooLongError reports an attempt to store a path that exceeds [MaxLen].
type TooLongError struct {
	// Len is the byte length that was attempted.
	Len int
	// Max is the capacity that was exceeded.
	Max int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("staticpath: cannot hold a path of %d bytes, capacity is %d", e.Len, e.Max)
}

// ErrNotUTF8 is returned on platforms that require UTF-8 paths when the
// bytes are not valid UTF-8.
var ErrNotUTF8 = errors.New("staticpath: path is required to be utf-8 on windows")

// StaticPath holds a path of at most [MaxLen] bytes. The zero value is the
// empty path.
type StaticPath struct {
	n    uint16
	data [MaxLen]byte
}

// FromPath encodes p. It fails with [*TooLongError] if the encoding exceeds
// [MaxLen], or with [ErrNotUTF8] on platforms that require UTF-8 paths.
func FromPath(p string) (StaticPath, error) {
	if err := validateEncoding(p); err != nil {
		return StaticPath{}, err
	}
	if len(p) > MaxLen {
		return StaticPath{}, &TooLongError{Len: len(p), Max: MaxLen}
	}

	var sp StaticPath
	sp.n = uint16(len(p))
	copy(sp.data[:], p)
	return sp, nil
}

// Path decodes the stored bytes back into a path. It fails only with
// [ErrNotUTF8], and only on platforms that require UTF-8 paths.
func (sp *StaticPath) Path() (string, error) {
	raw := string(sp.data[:sp.n])
	if err := validateEncoding(raw); err != nil {
		return "", err
	}
	return raw, nil
}

// Len returns the stored byte length.
func (sp *StaticPath) Len() int { return int(sp.n) }

// String renders the stored bytes for diagnostics, escaping anything that is
// not printable UTF-8. It never fails.
func (sp *StaticPath) String() string {
	return fmt.Sprintf("%q", sp.data[:sp.n])
}

// MarshalBinary encodes the path into a [FrameLen]-byte frame.
func (sp *StaticPath) MarshalBinary() ([]byte, error) {
	out := make([]byte, FrameLen)
	binary.LittleEndian.PutUint16(out[:2], sp.n)
	copy(out[2:], sp.data[:sp.n])
	return out, nil
}

// UnmarshalBinary decodes a frame produced by MarshalBinary.
func (sp *StaticPath) UnmarshalBinary(data []byte) error {
	if len(data) != FrameLen {
		return fmt.Errorf("staticpath: frame is %d bytes, want %d", len(data), FrameLen)
	}
	n := binary.LittleEndian.Uint16(data[:2])
	if int(n) > MaxLen {
		return fmt.Errorf("staticpath: frame declares %d payload bytes, capacity is %d", n, MaxLen)
	}
	sp.n = n
	copy(sp.data[:], data[2:2+n])
	for i := int(n); i < MaxLen; i++ {
		sp.data[i] = 0
	}
	return nil
}
