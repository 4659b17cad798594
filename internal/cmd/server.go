package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/finquest/finquest/internal/identity"
)

func setupServer(cfg *Config, services *Services) *http.Server {
	router := mux.NewRouter()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: cfg.allowedOrigins(),
		AllowedHeaders: []string{"*"},
	})

	// Health check stays outside auth
	setupHealthCheck(router)

	// WebSocket routes authenticate via token query param inside the
	// handler, the middleware only covers the REST API.
	services.Gateway.Handler().RegisterRoutes(router)

	// Signup is open (invite-gated inside the app layer)
	services.Users.RegisterPublicRoutes(router)

	api := router.NewRoute().Subrouter()
	api.Use(identity.Middleware(services.Resolver))
	services.Users.RegisterRoutes(api)
	services.Games.RegisterRoutes(api)
	services.Quiz.RegisterRoutes(api)
	services.Leaderboard.RegisterRoutes(api)
	services.Scenarios.RegisterRoutes(api)

	// Wrap with CORS
	handler := c.Handler(router)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.port()),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func setupHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	}).Methods(http.MethodGet)
}
