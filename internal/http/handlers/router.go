package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	mw "github.com/brightstay/stayflow/pkg/middleware"
)

// Router assembles the full HTTP surface.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("stayflow"))
	r.Use(mw.Logging)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", "*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(mw.Health)
	r.Use(mw.Metrics("stayflow"))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Route("/signup", func(r chi.Router) {
				r.Post("/start", h.SignupStart)
				r.Post("/verify", h.SignupVerify)
				r.Post("/resend", h.SignupResend)
				r.Post("/change-email", h.SignupChangeEmail)
				r.Post("/complete", h.SignupComplete)
			})

			r.Post("/login", h.Login)
			r.With(h.RequireClient).Post("/logout", h.Logout)
			r.With(h.RequireClient).Get("/me", h.Me)

			r.Route("/reset", func(r chi.Router) {
				r.Post("/start", h.ResetStart)
				r.Post("/verify", h.ResetVerify)
				r.Post("/resend", h.ResetResend)
				r.Post("/complete", h.ResetComplete)
			})

			r.Route("/verify", func(r chi.Router) {
				r.Use(h.RequireClient)
				r.Post("/start", h.VerifyStart)
				r.Post("/submit", h.VerifySubmit)
				r.Post("/resend", h.VerifyResend)
			})
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(h.OptionalClient)
			r.Post("/", h.CheckoutOpen)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.CheckoutGet)
				r.Post("/guest-info", h.CheckoutGuestInfo)
				r.Post("/pay-at-hotel", h.CheckoutPayAtHotel)
				r.Post("/online", h.CheckoutOnline)
				r.Post("/online/confirm", h.CheckoutOnlineConfirm)
				r.Post("/online/fail", h.CheckoutOnlineFail)
				r.Post("/back", h.CheckoutBack)
				r.Delete("/", h.CheckoutAbandon)
			})
		})

		r.With(h.OptionalClient).Get("/hotels/{id}/review-eligibility", h.ReviewEligibility)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireClient)
			r.Get("/wallet", h.Wallet)
			r.Get("/bookings", h.MyBookings)
			r.Get("/bookings/{id}", h.Booking)
			r.Patch("/bookings/{id}/cancel", h.CancelBooking)
		})
	})

	return r
}
