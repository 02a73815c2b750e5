//go:build windows

package staticpath

import "unicode/utf8"

// validateEncoding enforces the Windows requirement that paths are UTF-8.
func validateEncoding(p string) error {
	if !utf8.ValidString(p) {
		return ErrNotUTF8
	}
	return nil
}
