package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveFromHeader(t *testing.T) {
	r := NewResolver("X-Store-ID", "souq.example", "")
	req := httptest.NewRequest("GET", "http://souq.example/api/v1/products", nil)
	req.Header.Set("X-Store-ID", "bab-al-yemen")

	require.Equal(t, "bab-al-yemen", r.Resolve(req))
}

func TestResolveHeaderWinsOverSubdomain(t *testing.T) {
	r := NewResolver("X-Store-ID", "souq.example", "")
	req := httptest.NewRequest("GET", "http://aden-store.souq.example/", nil)
	req.Header.Set("X-Store-ID", "bab-al-yemen")

	require.Equal(t, "bab-al-yemen", r.Resolve(req))
}

func TestResolveFromSubdomain(t *testing.T) {
	r := NewResolver("", "souq.example", "")

	cases := []struct {
		host string
		want string
	}{
		{"bab-al-yemen.souq.example", "bab-al-yemen"},
		{"bab-al-yemen.souq.example:8080", "bab-al-yemen"},
		{"souq.example", ""},
		{"deep.nested.souq.example", ""},
		{"other.example", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "http://"+tc.host+"/", nil)
		req.Host = tc.host
		require.Equal(t, tc.want, r.Resolve(req), "host %s", tc.host)
	}
}

func TestMiddlewareInjectsStore(t *testing.T) {
	r := NewResolver("X-Store-ID", "souq.example", "")

	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got, _ = From(req.Context())
	})
	req := httptest.NewRequest("GET", "http://souq.example/", nil)
	req.Header.Set("X-Store-ID", "bab-al-yemen")
	r.Middleware(next).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "bab-al-yemen", got)
}

func TestMiddlewareAppliesDefaultStore(t *testing.T) {
	r := NewResolver("X-Store-ID", "souq.example", "main-souq")

	var got string
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got, _ = From(req.Context())
	})
	req := httptest.NewRequest("GET", "http://other.example/", nil)
	req.Host = "other.example"
	r.Middleware(next).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "main-souq", got)
}

func TestMiddlewareLeavesContextEmptyWithoutStore(t *testing.T) {
	r := NewResolver("X-Store-ID", "souq.example", "")

	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, ok = From(req.Context())
	})
	req := httptest.NewRequest("GET", "http://other.example/", nil)
	req.Host = "other.example"
	r.Middleware(next).ServeHTTP(httptest.NewRecorder(), req)

	require.False(t, ok)
}
