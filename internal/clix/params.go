package clix

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const defaultLimit = 20

// ParseLimit reads the --limit flag; zero or missing means the default.
func ParseLimit(flags *pflag.FlagSet) (int, error) {
	limit, err := flags.GetInt("limit")
	if err != nil {
		return 0, err
	}
	if limit < 0 {
		return 0, fmt.Errorf("limit must not be negative, got %d", limit)
	}
	if limit == 0 {
		limit = defaultLimit
	}
	return limit, nil
}

// LimitFromString parses a limit from a query string value. An empty value
// means the default.
func LimitFromString(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer: %q", s)
	}
	if limit < 0 {
		return 0, fmt.Errorf("limit must not be negative, got %d", limit)
	}
	if limit == 0 {
		limit = defaultLimit
	}
	return limit, nil
}
