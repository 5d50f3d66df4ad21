package config

import (
	"os"
	"regexp"
	"strings"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars expands ${VAR} and ${VAR:-fallback}. Unset variables
// without a fallback are left untouched.
func substituteEnvVars(content []byte) []byte {
	return envVarRegex.ReplaceAllFunc(content, func(match []byte) []byte {
		expr := string(envVarRegex.FindSubmatch(match)[1])

		name, fallback, hasFallback := strings.Cut(expr, ":-")
		if value, exists := os.LookupEnv(name); exists && (value != "" || !hasFallback) {
			return []byte(value)
		}
		if hasFallback {
			return []byte(fallback)
		}
		return match
	})
}
