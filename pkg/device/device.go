// Package device extracts client details from HTTP requests: the client IP
// behind common proxies, a coarse browser fingerprint and a User-Agent
// classification.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"slices"
	"strings"
)

// Info describes the client that sent a request.
type Info struct {
	IP          string
	UserAgent   string
	Fingerprint string
	Client      Client
}

// FromRequest collects Info for r.
func FromRequest(r *http.Request) Info {
	return Info{
		IP:          ClientIP(r),
		UserAgent:   r.UserAgent(),
		Fingerprint: Fingerprint(r),
		Client:      ParseUserAgent(r.UserAgent()),
	}
}

// ClientIP returns the client's IP address. Proxy headers are checked in
// this order: CF-Connecting-IP, X-Forwarded-For (first valid entry),
// X-Real-IP. RemoteAddr is the fallback. Invalid values are skipped.
func ClientIP(r *http.Request) string {
	if ip := parseIP(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		for ip := range strings.SplitSeq(forwarded, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

// stableHeaders are present on nearly every browser request; which of
// them a client sends is part of the fingerprint.
var stableHeaders = []string{
	"accept", "accept-encoding", "accept-language", "cache-control",
	"connection", "sec-fetch-dest", "sec-fetch-mode", "sec-fetch-site",
	"upgrade-insecure-requests", "user-agent",
}

// Fingerprint returns a 32-character hex digest of the browser's
// User-Agent, Accept headers and the set of stable headers it sends.
// The IP is left out so a trusted device survives network changes.
func Fingerprint(r *http.Request) string {
	parts := make([]string, 0, 5)
	for _, v := range []string{
		r.UserAgent(),
		r.Header.Get("Accept-Language"),
		r.Header.Get("Accept-Encoding"),
		r.Header.Get("Accept"),
		headerSet(r),
	} {
		if v != "" {
			parts = append(parts, v)
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}

func headerSet(r *http.Request) string {
	names := make([]string, 0, len(stableHeaders))
	for name := range r.Header {
		if n := strings.ToLower(name); slices.Contains(stableHeaders, n) {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return strings.Join(names, ",")
}
