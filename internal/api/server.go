package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-automator/internal/automation"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// eventChannelPrefix prefixes run event names on the WebSocket stream.
const eventChannelPrefix = "automation."

// RunLister reads run history. Satisfied by *automation.SQLiteStore.
type RunLister interface {
	ListRuns(ctx context.Context, automationID string, limit int) ([]automation.RunRecord, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Engine  *automation.Engine
	Runs    RunLister    // optional
	MQTT    *mqtt.Client // optional
	DB      *sql.DB      // optional, for pool metrics
	Version string
}

// Server is the control API server.
//
// It is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	engine    *automation.Engine
	runs      RunLister
	mqtt      *mqtt.Client
	db        *sql.DB
	version   string
	startTime time.Time

	hub         *Hub
	server      *http.Server
	listener    net.Listener
	cancel      context.CancelFunc
	unsubscribe func()
	closeOnce   sync.Once
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("automation engine is required")
	}

	wsCfg := deps.WS
	if wsCfg.Path == "" {
		wsCfg.Path = "/ws"
	}
	if !strings.HasPrefix(wsCfg.Path, "/") {
		wsCfg.Path = "/" + wsCfg.Path
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     wsCfg,
		logger:    deps.Logger,
		engine:    deps.Engine,
		runs:      deps.Runs,
		mqtt:      deps.MQTT,
		db:        deps.DB,
		version:   deps.Version,
		startTime: time.Now(),
		hub:       NewHub(wsCfg, deps.Logger),
	}, nil
}

// Start binds the listener, relays engine events to the WebSocket hub and
// serves HTTP in a background goroutine. Stop with Close().
//
// A listen failure (port in use) is returned synchronously.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	s.unsubscribe = s.engine.Subscribe(s.relayEvent)

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	var err error
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.cancel != nil {
			s.cancel()
		}

		ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()

		s.logger.Info("API server shutting down")
		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("shutting down API server: %w", shutdownErr)
		}
	})
	return err
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// relayEvent forwards a run event to WebSocket subscribers of
// "automation.<type>".
func (s *Server) relayEvent(ev automation.Event) {
	s.hub.Broadcast(eventChannelPrefix+string(ev.Type), ev.Payload())
}
