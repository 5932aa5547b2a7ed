package server

import (
	"net/http"
	"slices"
	"strings"

	"careerkit/internal/types"

	"github.com/go-chi/chi/v5"
)

// Handler builds the router with all routes and middleware
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.corsMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusNotFound, types.FailureResponse("Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, http.StatusMethodNotAllowed, types.FailureResponse("Method not allowed"))
	})

	r.Get("/health", s.healthHandler)
	r.Get("/stats", s.statsHandler)
	r.Get("/tools", s.toolsHandler)

	for _, path := range []string{ProxyPath, GeneratePath} {
		r.Options(path, preflightHandler)
		r.With(s.rateLimitMiddleware, s.requestSizeLimitMiddleware).Post(path, s.proxyHandler)
	}

	return r
}

// corsMiddleware adds the CORS headers to every response
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowHeaders := strings.Join(s.CORS.AllowedHeaders, ", ")
	allowMethods := strings.Join(s.CORS.AllowedMethods, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				h.Add("Vary", "Origin")
			}
		}
		if allowHeaders != "" {
			h.Set("Access-Control-Allow-Headers", allowHeaders)
		}
		if allowMethods != "" {
			h.Set("Access-Control-Allow-Methods", allowMethods)
		}
		next.ServeHTTP(w, r)
	})
}

// allowedOrigin returns the Access-Control-Allow-Origin value for origin.
// An empty list or a "*" entry allows any origin.
func (s *Server) allowedOrigin(origin string) string {
	origins := s.CORS.AllowedOrigins
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return "*"
	}
	if origin != "" && slices.Contains(origins, origin) {
		return origin
	}
	return ""
}

// preflightHandler answers CORS preflight requests
func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next.ServeHTTP(w, r)
	})
}
