package gateway

import (
	"regexp"
	"strings"
)

var localOrigin = regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1)(:\d+)?$`)

// OriginPolicy decides which browser origins may open a connection.
type OriginPolicy struct {
	allowed    map[string]struct{}
	production bool
}

// NewOriginPolicy builds a policy from an explicit allow-list. Outside
// production any localhost origin and a missing Origin header are accepted.
func NewOriginPolicy(origins []string, production bool) *OriginPolicy {
	p := &OriginPolicy{
		allowed:    make(map[string]struct{}, len(origins)),
		production: production,
	}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether a handshake from origin is accepted.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return !p.production
	}
	if _, ok := p.allowed[origin]; ok {
		return true
	}
	return !p.production && localOrigin.MatchString(origin)
}
