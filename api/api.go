// Package api exposes the election program over HTTP. Mutating endpoints
// take a JSON body signed by the caller (EIP-191); the recovered address is
// the caller identity handed to the program.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/davinci-dao/election"
	"github.com/vocdoni/davinci-dao/log"
)

const (
	maxRequestBodyLog = 512 // Maximum length of request body to log
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Program *election.Program
	// Info is returned by the info endpoint.
	Info InfoResponse
}

// API type represents the API HTTP server.
type API struct {
	router  *chi.Mux
	program *election.Program
	info    InfoResponse
	addr    string
	server  *http.Server
}

// New creates a new API instance with the given configuration. The
// router is ready to serve; Start listens on the configured address.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Program == nil {
		return nil, fmt.Errorf("missing election program")
	}
	a := &API{
		program: conf.Program,
		info:    conf.Info,
		addr:    fmt.Sprintf("%s:%d", conf.Host, conf.Port),
	}
	a.info.MaxProposalLength = election.MaxProposalLength
	a.info.MaxValueLength = election.MaxValueLength
	a.initRouter()
	return a, nil
}

// Start listens on the configured address and serves the API in the
// background until Close is called.
func (a *API) Start() error {
	listener, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.addr, err)
	}
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "addr", listener.Addr().String())
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Close stops the HTTP server, waiting for in-flight requests until ctx is
// done.
func (a *API) Close(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.getInfo)

	// election lifecycle
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "POST")
	a.router.Post(ElectionsEndpoint, a.newPolling)
	log.Infow("register handler", "endpoint", ElectionEndpoint, "method", "GET")
	a.router.Get(ElectionEndpoint, a.getElection)
	log.Infow("register handler", "endpoint", ElectionVotesEndpoint, "method", "POST")
	a.router.Post(ElectionVotesEndpoint, a.vote)
	log.Infow("register handler", "endpoint", ElectionSumUpEndpoint, "method", "POST")
	a.router.Post(ElectionSumUpEndpoint, a.toSumUp)
	log.Infow("register handler", "endpoint", ElectionResultsEndpoint, "method", "GET")
	a.router.Get(ElectionResultsEndpoint, a.results)
	log.Infow("register handler", "endpoint", ElectionCloseEndpoint, "method", "POST")
	a.router.Post(ElectionCloseEndpoint, a.closeElection)

	// accounts
	log.Infow("register handler", "endpoint", RewardsEndpoint, "method", "GET")
	a.router.Get(RewardsEndpoint, a.rewardAccount)
	log.Infow("register handler", "endpoint", TokensEndpoint, "method", "GET")
	a.router.Get(TokensEndpoint, a.tokenAccount)
	log.Infow("register handler", "endpoint", VerifyingKeyEndpoint, "method", "GET")
	a.router.Get(VerifyingKeyEndpoint, a.verifyingKey)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(LoggingConfig{
		MaxBodyLog:       maxRequestBodyLog,
		ExcludedPrefixes: LogExcludedPrefixes,
	}))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.With(r.URL.Path).Write(w)
	})

	a.registerHandlers()
}

