// Package security guards the credentials podog sends.
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// IsLocalhost checks if the given host is localhost.
// Accepts: "localhost", "::1", "[::1]" and any 127.x.x.x address
func IsLocalhost(host string) bool {
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")

	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ValidateEndpoint checks an API base URL before credentials are sent to it.
// It checks:
//   - URL is valid and has an http or https scheme
//   - host is present
//   - plain HTTP is only used for a loopback host (local fakes)
func ValidateEndpoint(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is empty")
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %q (only http and https are allowed)", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	if scheme == "http" && !IsLocalhost(host) {
		return fmt.Errorf("HTTPS is required for non-local hosts, got %q", host)
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("query and fragment are not allowed")
	}

	return nil
}

// Mask hides most of a token or key for logging.
func Mask(secret string) string {
	if len(secret) <= 12 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
