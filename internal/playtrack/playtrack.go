// Package playtrack turns an incoming play request into an anonymized
// listener identifier and decides whether the play counts.
package playtrack

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

const unknown = "unknown"

// Identifier hashes ip and userAgent so no raw address is ever stored.
func Identifier(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + ":" + userAgent))
	return hex.EncodeToString(sum[:])
}

// ClientIP returns the first X-Forwarded-For entry, falling back to the
// remote address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return unknown
}

// RequestIdentifier is Identifier applied to r.
func RequestIdentifier(r *http.Request) string {
	ua := r.UserAgent()
	if ua == "" {
		ua = unknown
	}
	return Identifier(ClientIP(r), ua)
}

// Policy decides which plays are counted. Only plays started from the
// website are, which is recognized by the Referer header.
type Policy struct {
	allow []string
}

// NewPolicy accepts referers containing the request host or any of allow.
func NewPolicy(allow []string) *Policy {
	p := &Policy{}
	for _, a := range allow {
		if a = strings.TrimSpace(a); a != "" {
			p.allow = append(p.allow, a)
		}
	}
	return p
}

// Counts reports whether the play in r should be recorded.
func (p *Policy) Counts(r *http.Request) bool {
	referer := r.Referer()
	if referer == "" {
		return false
	}
	if r.Host != "" && strings.Contains(referer, r.Host) {
		return true
	}
	for _, a := range p.allow {
		if strings.Contains(referer, a) {
			return true
		}
	}
	return false
}
