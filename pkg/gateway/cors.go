package gateway

import (
	"net/http"
	"strings"
)

// CORSConfig controls the preflight/allow-origin behaviour of the
// Connect/gRPC-Web HTTP listener.
type CORSConfig struct {
	Enabled bool
	Origins []string // "*" or an explicit allow-list
}

const corsAllowedHeaders = "Content-Type, Connect-Protocol-Version, X-Grpc-Web, Connect-Accept-Encoding, Connect-Timeout-Ms"

func (c CORSConfig) allow(origin string) bool {
	if !c.Enabled || origin == "" {
		return false
	}
	for _, o := range c.Origins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// applyCORS writes the CORS response headers for r if its Origin is
// allowed, and reports whether the caller should treat this as a
// completed preflight response (OPTIONS with an allowed origin).
func (c CORSConfig) applyCORS(w http.ResponseWriter, r *http.Request) (preflight bool) {
	origin := r.Header.Get("Origin")
	if !c.allow(origin) {
		return false
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Vary", "Origin")
	if r.Method != http.MethodOptions {
		return false
	}
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
	w.Header().Set("Access-Control-Max-Age", "7200")
	w.WriteHeader(http.StatusNoContent)
	return true
}
