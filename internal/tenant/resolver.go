package tenant

import (
	"net"
	"net/http"
	"strings"
)

// Resolver resolves store slugs from HTTP requests using either a header or
// the request subdomain.
type Resolver struct {
	HeaderName   string
	RootDomain   string
	DefaultStore string
}

// NewResolver returns a resolver configured with the provided header name,
// root domain, and default store slug. If headerName is empty, "X-Store-ID"
// is used.
func NewResolver(headerName, rootDomain, defaultStore string) *Resolver {
	if headerName == "" {
		headerName = "X-Store-ID"
	}
	return &Resolver{
		HeaderName:   headerName,
		RootDomain:   strings.ToLower(strings.TrimSpace(rootDomain)),
		DefaultStore: strings.TrimSpace(defaultStore),
	}
}

// Middleware resolves the store from the request and injects it into the
// context passed downstream.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		slug := r.Resolve(req)
		if slug == "" {
			slug = r.DefaultStore
		}
		if slug != "" {
			req = req.WithContext(WithStore(req.Context(), slug))
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve attempts to find the store slug from the configured header or the
// request subdomain.
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	if slug := strings.TrimSpace(req.Header.Get(r.HeaderName)); slug != "" {
		return slug
	}
	host := hostWithoutPort(req.Host)
	if host == "" {
		return ""
	}
	return strings.TrimSpace(r.subdomainFromHost(host))
}

func (r *Resolver) subdomainFromHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" || r.RootDomain == "" {
		return ""
	}
	if host == r.RootDomain {
		return ""
	}
	suffix := "." + r.RootDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	if strings.Contains(sub, ".") {
		return ""
	}
	return sub
}

func hostWithoutPort(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
