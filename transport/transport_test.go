package transport

import (
	"strings"
	"testing"
)

func TestValidateName(t *testing.T) {
	t.Run("accepts typical names", func(t *testing.T) {
		for _, name := range []string{"app", "single_process", "my-app.v2", "A1"} {
			if err := ValidateName(name); err != nil {
				t.Errorf("ValidateName(%q) = %v, want nil", name, err)
			}
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		if err := ValidateName(""); err == nil {
			t.Error("ValidateName(\"\") = nil, want error")
		}
	})

	t.Run("rejects invalid bytes", func(t *testing.T) {
		for _, name := range []string{"a/b", "a b", "a\x00b", "sub/../../etc"} {
			if err := ValidateName(name); err == nil {
				t.Errorf("ValidateName(%q) = nil, want error", name)
			}
		}
	})

	t.Run("rejects overlong name", func(t *testing.T) {
		name := strings.Repeat("x", maxNameLen+1)
		if err := ValidateName(name); err == nil {
			t.Error("ValidateName(overlong) = nil, want error")
		}
		if err := ValidateName(strings.Repeat("x", maxNameLen)); err != nil {
			t.Errorf("ValidateName(at limit) = %v, want nil", err)
		}
	})
}
