package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy describes which browser origins may call the API directly. The
// only expected caller is the tutoring site's front end, so an empty origin
// list disables the middleware entirely.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// WithCORS answers preflights and stamps CORS headers for allowed origins.
// Methods and headers default to what this API actually serves: GET/POST plus
// the JSON content type and the admin/cron secret headers are configured by
// the caller.
func WithCORS(cfg CORSPolicy) Middleware {
	origins := trimNonEmpty(cfg.AllowedOrigins)
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	methods := trimNonEmpty(cfg.AllowedMethods)
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := trimNonEmpty(cfg.AllowedHeaders)
	if len(headers) == 0 {
		headers = []string{"Content-Type"}
	}
	methodList := strings.Join(methods, ", ")
	headerList := strings.Join(headers, ", ")
	maxAge := int(cfg.MaxAge.Seconds())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := resolveOrigin(origin, origins, cfg.AllowCredentials)
			if allowed == "" {
				// Same-origin or unknown origin: pass through untouched and
				// let the browser enforce its policy.
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowed)
			h.Set("Access-Control-Allow-Methods", methodList)
			h.Set("Access-Control-Allow-Headers", headerList)
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if maxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
			}
			h.Add("Vary", "Origin")
			h.Add("Vary", "Access-Control-Request-Method")
			h.Add("Vary", "Access-Control-Request-Headers")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveOrigin returns the Allow-Origin value to emit, or "" when the origin
// is not allowed. A wildcard with credentials must echo the caller's origin;
// the literal "*" is illegal in that combination.
func resolveOrigin(origin string, allowed []string, credentials bool) string {
	if origin == "" {
		return ""
	}
	for _, candidate := range allowed {
		if candidate == "*" {
			if credentials {
				return origin
			}
			return "*"
		}
		if strings.EqualFold(candidate, origin) {
			return origin
		}
	}
	return ""
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
