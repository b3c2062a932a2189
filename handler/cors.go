package handler

import (
	"net/http"

	"github.com/rs/cors"
)

// WithCORS wraps next so that browsers on allowedOrigins may call the relay
// with credentials. Requests without an Origin header are passed through.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", correlationHeader},
		ExposedHeaders:   []string{correlationHeader},
		AllowCredentials: true,
	}).Handler(next)
}
