package staticpath

import (
	"errors"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	paths := []string{
		"",
		"/",
		"/tmp/some file with spaces",
		"relative/path.txt",
		"/home/user/" + strings.Repeat("d/", 100) + "leaf",
		strings.Repeat("x", MaxLen),
	}
	for _, path := range paths {
		sp, err := FromPath(path)
		if err != nil {
			t.Fatalf("FromPath(%.40q...) error = %v", path, err)
		}
		got, err := sp.Path()
		if err != nil {
			t.Fatalf("Path() error = %v", err)
		}
		if got != path {
			t.Errorf("round trip = %.40q, want %.40q", got, path)
		}
		if sp.Len() != len(path) {
			t.Errorf("Len() = %d, want %d", sp.Len(), len(path))
		}
	}
}

func TestTooLong(t *testing.T) {
	path := strings.Repeat("x", MaxLen+1)
	_, err := FromPath(path)

	var tooLong *TooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("FromPath(overlong) error = %v, want *TooLongError", err)
	}
	if tooLong.Len != MaxLen+1 {
		t.Errorf("TooLongError.Len = %d, want %d", tooLong.Len, MaxLen+1)
	}
	if tooLong.Max != MaxLen {
		t.Errorf("TooLongError.Max = %d, want %d", tooLong.Max, MaxLen)
	}
}

func TestBinaryFrame(t *testing.T) {
	sp, err := FromPath("/var/data/report.pdf")
	if err != nil {
		t.Fatalf("FromPath() error = %v", err)
	}

	frame, err := sp.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if len(frame) != FrameLen {
		t.Fatalf("frame length = %d, want %d", len(frame), FrameLen)
	}

	var decoded StaticPath
	if err := decoded.UnmarshalBinary(frame); err != nil {
		t.Fatalf("UnmarshalBinary() error = %v", err)
	}
	got, err := decoded.Path()
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	if got != "/var/data/report.pdf" {
		t.Errorf("decoded path = %q", got)
	}
}

func TestUnmarshalBinaryRejectsBadFrames(t *testing.T) {
	var sp StaticPath

	if err := sp.UnmarshalBinary(make([]byte, FrameLen-1)); err == nil {
		t.Error("UnmarshalBinary(short frame) = nil, want error")
	}

	frame := make([]byte, FrameLen)
	frame[0] = 0xFF
	frame[1] = 0xFF // declares 65535 payload bytes
	if err := sp.UnmarshalBinary(frame); err == nil {
		t.Error("UnmarshalBinary(oversized length) = nil, want error")
	}
}

func TestStringEscapesInvalidBytes(t *testing.T) {
	sp, err := FromPath("/tmp/\xff\xfe")
	if err != nil {
		t.Skipf("platform rejects non-utf8 paths: %v", err)
	}
	s := sp.String()
	if strings.ContainsRune(s, 0xFFFD) == false && !strings.Contains(s, `\x`) {
		t.Errorf("String() = %s, want escaped representation", s)
	}
}
