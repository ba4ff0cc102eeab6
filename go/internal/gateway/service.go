package gateway

import (
	"context"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/courtside/go/internal/match"
	"github.com/mcdev12/courtside/go/internal/metrics"
)

// Service is the viewer gateway: websocket feeds plus the REST read routes
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the gateway
type Config struct {
	ConnectionConfig ConnectionConfig
	Rules            match.Ruleset
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Rules:            match.DefaultRuleset(),
	}
}

// Deps are the collaborators the gateway reads from and writes through
type Deps struct {
	Source   DocumentSource
	State    StateProvider
	Executor CommandExecutor
	Metrics  *metrics.Recorder
}

func NewService(config Config, deps Deps) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, deps.Source, deps.Executor, config.Rules, deps.Metrics)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
		stateHandler:      NewStateHandler(deps.State, config.Rules),
	}
}

// Start runs the broadcast loop until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting viewer gateway")
	s.connectionManager.Start(ctx)
	log.Info().Msg("viewer gateway stopped")
}

// RegisterRoutes registers the websocket and REST routes
func (s *Service) RegisterRoutes(router *mux.Router) {
	s.wsHandler.RegisterRoutes(router)
	s.stateHandler.RegisterStateRoutes(router)
	log.Info().Msg("viewer gateway routes registered")
}

func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
