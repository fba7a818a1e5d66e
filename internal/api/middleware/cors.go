package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSMiddleware mirrors the permissive policy the checkout clients expect:
// any origin, with the headers the web client sends.
func CORSMiddleware() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"authorization", "x-client-info", "apikey", "content-type", "idempotency-key", "x-trace-id"},
		MaxAge:         300,
	})
}
