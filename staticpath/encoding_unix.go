//go:build !windows

package staticpath

// validateEncoding accepts any byte sequence; Unix paths have no encoding
// requirement.
func validateEncoding(string) error { return nil }
