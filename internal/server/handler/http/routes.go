package http

import (
	"net/http"

	"github.com/custodix/recoveryd/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs and returns an HTTP handler that serves the
// recovery module API. It applies JSON content-type enforcement,
// request logging, and certificate-based authentication, and mounts
// the enrollment and account endpoints under /api.
//
// Routes:
//
//	POST /api/register                                    → registerHandler.Register (public)
//	POST /api/accounts                                    → accountHandler.Create
//	GET  /api/accounts/{accountID}                        → accountHandler.Get
//	POST /api/accounts/{accountID}/biometric              → accountHandler.SetBiometric
//	POST /api/accounts/{accountID}/biometric/verify       → accountHandler.VerifyBiometric
//	GET  /api/accounts/{accountID}/guardians              → accountHandler.ListGuardians
//	POST /api/accounts/{accountID}/guardians              → accountHandler.AddGuardian
//	DELETE /api/accounts/{accountID}/guardians/{guardianID} → accountHandler.RemoveGuardian
//	POST /api/accounts/{accountID}/checkin                → recoveryHandler.CheckIn
//	GET  /api/accounts/{accountID}/recovery               → recoveryHandler.Status
//	POST /api/accounts/{accountID}/recovery               → recoveryHandler.Initiate
//	POST /api/accounts/{accountID}/recovery/approve       → recoveryHandler.Approve
//	POST /api/accounts/{accountID}/recovery/execute       → recoveryHandler.Execute
//	POST /api/accounts/{accountID}/recovery/cancel        → recoveryHandler.Cancel
//	POST /api/accounts/{accountID}/fee                    → feeHandler.Collect
//	POST /api/accounts/{accountID}/notifications          → notificationHandler.Request
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json") — rejects non-JSON requests
//  2. WithRequestLogging(logger)           — logs incoming requests
//  3. CertAuth                             — enforces TLS client certificate auth
func NewRouter(
	registerHandler *RegisterHandler,
	accountHandler *AccountHandler,
	recoveryHandler *RecoveryHandler,
	feeHandler *FeeHandler,
	notificationHandler *NotificationHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))
	// Enforce certificate-based authentication
	r.Use(middleware.CertAuth)

	r.Route("/api", func(r chi.Router) {
		// Public endpoint: enrollment issues the client certificate
		r.Post("/register", registerHandler.Register)

		// Protected group: requires valid client certificate
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accountHandler.Create)

			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", accountHandler.Get)

				r.Post("/biometric", accountHandler.SetBiometric)
				r.Post("/biometric/verify", accountHandler.VerifyBiometric)

				r.Get("/guardians", accountHandler.ListGuardians)
				r.Post("/guardians", accountHandler.AddGuardian)
				r.Delete("/guardians/{guardianID}", accountHandler.RemoveGuardian)

				r.Post("/checkin", recoveryHandler.CheckIn)

				r.Get("/recovery", recoveryHandler.Status)
				r.Post("/recovery", recoveryHandler.Initiate)
				r.Post("/recovery/approve", recoveryHandler.Approve)
				r.Post("/recovery/execute", recoveryHandler.Execute)
				r.Post("/recovery/cancel", recoveryHandler.Cancel)

				r.Post("/fee", feeHandler.Collect)
				r.Post("/notifications", notificationHandler.Request)
			})
		})
	})

	return r
}
