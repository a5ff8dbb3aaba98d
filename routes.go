package authd

import (
	"net/http"
	"strings"
)

// Access is the classification of a route: public routes pass through the
// request gate untouched, protected routes get bearer-token validation.
type Access int

const (
	AccessProtected Access = iota
	AccessPublic
)

// RouteRule marks requests matching a method and path predicate as public.
// Method "" matches any method.
type RouteRule struct {
	Method string
	Match  func(path string) bool
}

// ExactRule matches one method and path exactly.
func ExactRule(method, path string) RouteRule {
	return RouteRule{Method: method, Match: func(p string) bool { return p == path }}
}

// PrefixRule matches any method on the prefix itself or anything under it.
func PrefixRule(prefix string) RouteRule {
	trimmed := strings.TrimSuffix(prefix, "/")
	return RouteRule{Match: func(p string) bool {
		return p == trimmed || strings.HasPrefix(p, trimmed+"/")
	}}
}

// RouteTable classifies requests as public or protected. It is built once at
// startup from an ordered rule list and is read-only afterwards, so it is
// safe for concurrent use.
type RouteTable struct {
	rules []RouteRule
}

// NewRouteTable builds a table from public-route rules evaluated in priority
// order. Anything no rule matches is protected.
func NewRouteTable(rules ...RouteRule) *RouteTable {
	return &RouteTable{rules: rules}
}

// Classify returns the access classification for a method and path.
func (t *RouteTable) Classify(method, path string) Access {
	for _, rule := range t.rules {
		if rule.Method != "" && !strings.EqualFold(rule.Method, method) {
			continue
		}
		if rule.Match != nil && rule.Match(path) {
			return AccessPublic
		}
	}
	return AccessProtected
}

// DefaultRouteTable returns the standard public-route set: login and user
// creation, the avatar file endpoint, and the console, docs, and error
// prefixes. Everything else requires a validated principal downstream.
func DefaultRouteTable() *RouteTable {
	return NewRouteTable(
		ExactRule(http.MethodPost, "/users/login"),
		ExactRule(http.MethodPost, "/users"),
		PrefixRule("/files"),
		PrefixRule("/db-console"),
		PrefixRule("/api-docs"),
		PrefixRule("/error"),
	)
}
