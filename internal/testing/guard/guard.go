// Package guard is blank-imported by tests that touch the binaries' startup
// path. It switches on test mode and points the config at a dead backend so
// LoadConfig succeeds without a real environment.
package guard

import "os"

func init() {
	if os.Getenv("ODYSSEY_TEST_MODE") == "" {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
	}
	if os.Getenv("BACKEND_BASE_URL") == "" {
		_ = os.Setenv("BACKEND_BASE_URL", "http://127.0.0.1:0")
	}
}
