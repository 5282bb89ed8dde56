package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all application routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(noCache)

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Public routes
	r.HandleFunc("/login", handler.LoginForm).Methods("GET")
	r.HandleFunc("/login", handler.Login).Methods("POST")
	r.HandleFunc("/logout", handler.Logout).Methods("GET")
	r.HandleFunc("/register", handler.RegisterForm).Methods("GET")
	r.HandleFunc("/register", handler.Register).Methods("POST")

	// Authenticated routes
	auth := r.NewRoute().Subrouter()
	auth.Use(handler.requireLogin)
	auth.HandleFunc("/", handler.Index).Methods("GET")
	auth.HandleFunc("/buy", handler.BuyForm).Methods("GET")
	auth.HandleFunc("/buy", handler.Buy).Methods("POST")
	auth.HandleFunc("/sell", handler.SellForm).Methods("GET")
	auth.HandleFunc("/sell", handler.Sell).Methods("POST")
	auth.HandleFunc("/quote", handler.QuoteForm).Methods("GET")
	auth.HandleFunc("/quote", handler.Quote).Methods("POST")
	auth.HandleFunc("/history", handler.History).Methods("GET")

	return r
}
