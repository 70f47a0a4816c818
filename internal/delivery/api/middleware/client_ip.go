package middleware

import (
	"net"
	"strings"

	"eventos/internal/errors"

	"github.com/labstack/echo/v4"
)

// NewIPExtractor decides what c.RealIP returns, and with it the rate limit
// bucket. Without trusted proxies forwarding headers are ignored entirely.
// With proxies, X-Forwarded-For is walked right to left and only hops inside
// the configured ranges are skipped.
func NewIPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trustedProxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid trusted proxy range %q", cidr)
		}
		options = append(options, echo.TrustIPRange(ipNet))
	}

	return echo.ExtractIPFromXFFHeader(options...), nil
}
