package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/davinci-dao/api"
	"github.com/vocdoni/davinci-dao/election"
	"github.com/vocdoni/davinci-dao/log"
)

// shutdownTimeout bounds the wait for in-flight requests on Stop.
const shutdownTimeout = 10 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	program *election.Program
	API     *api.API
	mu      sync.Mutex
	cancel  context.CancelFunc
	host    string
	port    int
	info    api.InfoResponse
}

// NewAPI creates a new APIService instance.
func NewAPI(program *election.Program, host string, port int, info api.InfoResponse, disableLogging bool) *APIService {
	if disableLogging {
		api.DisabledLogging = disableLogging
		log.Debugw("API logging is disabled")
	}
	return &APIService{
		program: program,
		host:    host,
		port:    port,
		info:    info,
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	a, err := api.New(&api.APIConfig{
		Host:    as.host,
		Port:    as.port,
		Program: as.program,
		Info:    as.info,
	})
	if err != nil {
		return fmt.Errorf("failed to create API: %w", err)
	}
	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.API = a
	_, as.cancel = context.WithCancel(ctx)
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel == nil {
		return
	}
	as.cancel()
	as.cancel = nil

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := as.API.Close(ctx); err != nil {
		log.Warnw("API server shutdown failed", "error", err.Error())
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.host, as.port
}
