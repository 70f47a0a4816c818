package auth

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultRefreshTokenTTL applies when the configured TTL does not parse.
const DefaultRefreshTokenTTL = 7 * 24 * time.Hour

var ttlPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseTTL parses compact durations such as "30s", "15m", "24h" or "7d".
// Anything else falls back to DefaultRefreshTokenTTL.
func ParseTTL(raw string) time.Duration {
	match := ttlPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return DefaultRefreshTokenTTL
	}

	n, err := strconv.Atoi(match[1])
	if err != nil || n <= 0 {
		return DefaultRefreshTokenTTL
	}

	var unit time.Duration
	switch match[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}

	return time.Duration(n) * unit
}
