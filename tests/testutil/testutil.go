package testutil

import (
	"fmt"
	"os"
	"testing"
)

// VerifyTestEnvironment reports an error unless GO_ENV is "test".
func VerifyTestEnvironment() error {
	if env := os.Getenv("GO_ENV"); env != "test" {
		return fmt.Errorf("tests must run with GO_ENV=test to prevent data loss (current GO_ENV=%q)", env)
	}
	return nil
}

// RequireTestEnvironment guards a package's TestMain: it runs the tests
// only in the test environment and returns the exit code for os.Exit.
func RequireTestEnvironment(m *testing.M) int {
	if err := VerifyTestEnvironment(); err != nil {
		fmt.Fprintln(os.Stderr, "SAFETY CHECK FAILED:", err)
		return 1
	}
	return m.Run()
}

// MustSetTestEnvironment forces GO_ENV=test. Use it in suites that build
// their own database and router instead of relying on the caller's env.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("failed to set GO_ENV=test: %v", err)
	}
}
