package cli

import (
	"testing"

	"github.com/katalog-app/singleproc/internal/logging"
	"github.com/katalog-app/singleproc/staticpath"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"open": false, "listen": false, "config": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestPrintPathSkipsMalformedFrames(t *testing.T) {
	rt := &runtime{logger: logging.Nop()}

	if err := rt.printPath([]byte{0x01}); err != nil {
		t.Fatalf("malformed frame should be skipped, got %v", err)
	}

	sp, err := staticpath.FromPath("/tmp/example.txt")
	if err != nil {
		t.Fatal(err)
	}
	frame, err := sp.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	if err := rt.printPath(frame); err != nil {
		t.Fatalf("valid frame: %v", err)
	}
}
