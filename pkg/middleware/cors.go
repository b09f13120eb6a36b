package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	// AllowedOrigins holds exact origins ("https://admin.example.com"),
	// subdomain patterns ("https://*.example.com") or "*" for any origin.
	AllowedOrigins []string

	// AllowCredentials lets the browser send cookies. A wildcard origin is
	// then answered with the request's own origin, never "*".
	AllowCredentials bool

	// MaxAge is how long preflight results may be cached. Defaults to 1h.
	MaxAge time.Duration
}

// The API only serves reads, order placement and admin writes; identity
// arrives in gateway headers.
var (
	corsMethods = strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}, ", ")
	corsHeaders = strings.Join([]string{"Accept", "Content-Type", HeaderCorrelationID, HeaderUserID, HeaderUserRole}, ", ")
)

// NewCORSConfig builds a config for the given origins with the default max
// age.
func NewCORSConfig(origins []string) CORSConfig {
	return CORSConfig{AllowedOrigins: origins, MaxAge: time.Hour}
}

type originMatcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string // scheme://.domain for subdomain patterns
}

func newOriginMatcher(origins []string) originMatcher {
	m := originMatcher{exact: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		switch {
		case o == "":
		case o == "*":
			m.any = true
		case strings.Contains(o, "://*."):
			scheme, host, _ := strings.Cut(o, "://*")
			m.suffixes = append(m.suffixes, scheme+"://"+host)
		default:
			m.exact[o] = struct{}{}
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	if m.any {
		return true
	}
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, suffix := range m.suffixes {
		scheme, domain, _ := strings.Cut(suffix, "://")
		rest, ok := strings.CutPrefix(origin, scheme+"://")
		if ok && strings.HasSuffix(rest, domain) && len(rest) > len(domain) {
			return true
		}
	}
	return false
}

// CORS answers preflight requests and sets Access-Control headers for
// allowed origins. Requests from other origins pass through without CORS
// headers, so the browser blocks them.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = time.Hour
	}
	matcher := newOriginMatcher(cfg.AllowedOrigins)
	maxAge := strconv.Itoa(int(cfg.MaxAge / time.Second))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !matcher.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if matcher.any && !cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Set("Access-Control-Expose-Headers", HeaderCorrelationID)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
