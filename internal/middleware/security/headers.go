package security

import (
	"fmt"
	"net/http"
)

type HeadersConfig struct {
	CSP string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
	CrossOriginResource string
}

// DefaultHeadersConfig suits a JSON API that never serves documents.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP:                   "default-src 'none'; frame-ancestors 'none'",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "no-referrer",
		CrossOriginResource:   "same-origin",
	}
}

// Headers returns middleware applying cfg to every response.
func Headers(cfg HeadersConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", cfg.XContentTypeOptions)
			h.Set("X-Frame-Options", cfg.XFrameOptions)
			h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			h.Set("Cross-Origin-Resource-Policy", cfg.CrossOriginResource)
			if cfg.CSP != "" {
				h.Set("Content-Security-Policy", cfg.CSP)
			}
			// HSTS only over TLS
			if r.TLS != nil && cfg.HSTSMaxAge > 0 {
				v := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
				if cfg.HSTSIncludeSubdomains {
					v += "; includeSubDomains"
				}
				h.Set("Strict-Transport-Security", v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
