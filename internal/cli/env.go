package cli

import (
	"fmt"
	"os"
	"strconv"
)

// envPrefix prefixes the environment variables that provide flag defaults,
// e.g. POSGRID_LOG_LEVEL for -log-level.
const envPrefix = "POSGRID_"

func envString(name, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		return v
	}
	return fallback
}

func envInt(name string, fallback int) (int, error) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s %q: must be an integer", envPrefix, name, v)
	}
	return n, nil
}
