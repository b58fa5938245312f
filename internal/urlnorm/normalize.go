// Package urlnorm rewrites media URLs that point at this deployment into
// host-relative paths so responses stay valid under a 'self'-scoped
// content-security policy.
package urlnorm

import (
	"net/url"
	"strings"
)

// Normalizer knows which hosts belong to this deployment.
type Normalizer struct {
	hosts map[string]struct{}
}

// New returns a Normalizer for the given hosts. Entries may carry a port
// ("localhost:8080") or not ("pods.example.com").
func New(hosts ...string) *Normalizer {
	n := &Normalizer{hosts: make(map[string]struct{}, len(hosts))}
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			n.hosts[h] = struct{}{}
		}
	}
	return n
}

// IsOwnHost reports whether host (with or without port) is one of ours.
func (n *Normalizer) IsOwnHost(host string) bool {
	if n == nil {
		return false
	}
	host = strings.ToLower(host)
	if _, ok := n.hosts[host]; ok {
		return true
	}
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.HasSuffix(host, "]") {
		_, ok := n.hosts[host[:i]]
		return ok
	}
	return false
}

// Normalize rewrites absolute http(s) URLs on one of our hosts to a path
// with query. Relative references and foreign http(s) URLs pass through.
// Anything with another scheme is dropped, since it could not be played.
func (n *Normalizer) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		if u.Host != "" {
			// protocol-relative "//host/path"
			if n.IsOwnHost(u.Host) {
				return pathOf(u)
			}
		}
		return raw
	case "http", "https":
		if n.IsOwnHost(u.Host) {
			return pathOf(u)
		}
		return raw
	default:
		return ""
	}
}

// NormalizePtr is Normalize for nullable columns.
func (n *Normalizer) NormalizePtr(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := n.Normalize(*raw)
	return &s
}

// IsPlayable reports whether raw is a host-relative path or an http(s) URL.
func IsPlayable(raw string) bool {
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

func pathOf(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
