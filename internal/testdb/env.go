package testdb

import (
	"os"
)

// Environment variables consulted for the test database, in order.
const (
	EnvTestDatabaseURL = "DOCGEN_TEST_DATABASE_URL"
	EnvDatabaseURL     = "DATABASE_URL"
)

// ciEnvVars are set by common CI providers.
var ciEnvVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// IsCI reports whether the tests run on a CI provider.
func IsCI() bool {
	for _, name := range ciEnvVars {
		if os.Getenv(name) != "" {
			return true
		}
	}
	return false
}

// DatabaseURL returns the first configured test database URL or "".
func DatabaseURL() string {
	for _, name := range []string{EnvTestDatabaseURL, EnvDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
