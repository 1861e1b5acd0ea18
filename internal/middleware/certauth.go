// Package middleware provides HTTP middlewares for caller authentication and logging.
package middleware

import (
	"context"
	"net/http"
)

type ctxKey string

const principalKey ctxKey = "principal"

// CertAuth is a middleware that enforces mutual TLS authentication.
//
// It checks whether the incoming HTTP request has a valid client certificate.
// The /api/register endpoint is excluded from certificate validation to allow
// new principals to enroll and obtain a certificate.
//
// On successful validation, it extracts the Common Name (CN) from the client's
// certificate and stores it in the request context as the caller's principal
// address. Every operation validates roles against this identity; the module
// never trusts a caller-supplied identity field.
func CertAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/register" {
			// Allow enrollment without certificate
			next.ServeHTTP(w, r)
			return
		}
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "no client certificate provided", http.StatusUnauthorized)
			return
		}
		cert := r.TLS.PeerCertificates[0]
		ctx := context.WithValue(r.Context(), principalKey, cert.Subject.CommonName)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithPrincipal returns a context carrying the given principal address, as
// CertAuth would set it after validating a client certificate.
func WithPrincipal(ctx context.Context, principal string) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// GetPrincipalFromContext extracts the caller's principal address (Common
// Name from the client certificate) from the request context. Returns an
// empty string if not found.
func GetPrincipalFromContext(ctx context.Context) string {
	val := ctx.Value(principalKey)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
