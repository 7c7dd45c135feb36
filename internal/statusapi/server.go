// Package statusapi exposes the engine's liveness endpoint described in
// SPEC_FULL.md §6: GET /health (process liveness) and GET /status (uptime,
// last tick age, RPC/notifier health). Grounded on the teacher's
// internal/signal/server.go (fiber.App construction, read/write timeouts,
// Start/Shutdown shape, DisableStartupMessage) — that server's own
// /health route is the direct ancestor of this package's; /status is new,
// since the teacher's signal server has no engine-state surface to
// report.
package statusapi

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"solswap-engine/internal/health"
)

// HealthChecker is the subset of internal/health.Checker this server
// reports through.
type HealthChecker interface {
	GetStatuses() []health.Status
	Healthy() bool
}

// EngineStats is a snapshot of the running engine's observable state, read
// by Server without ever calling back into the engine loop.
type EngineStats struct {
	StartedAt   time.Time
	LastTickAt  time.Time
	TicksServed uint64
}

// StatsSource supplies the current EngineStats. Implemented by a small
// adapter in cmd/engine that reads the engine's event channel.
type StatsSource interface {
	Stats() EngineStats
}

// RPCLatencyProbe reports the RPC endpoint's round-trip latency, measured
// when called. Implemented by internal/blockchain.RPCClient, whose
// LatencyMs times a fresh GetLatestBlockhash call each time.
type RPCLatencyProbe interface {
	LatencyMs() int64
}

// Server is the liveness/status HTTP server.
type Server struct {
	app     *fiber.App
	host    string
	port    int
	checker HealthChecker
	stats   StatsSource
	rpc     RPCLatencyProbe
}

// NewServer creates a status server bound to host:port.
func NewServer(host string, port int, checker HealthChecker, stats StatsSource, rpc RPCLatencyProbe) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          5 * time.Second,
	})

	s := &Server{app: app, host: host, port: port, checker: checker, stats: stats, rpc: rpc}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	s.app.Get("/status", s.handleStatus)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	stats := s.stats.Stats()
	body := fiber.Map{
		"uptime_seconds":   time.Since(stats.StartedAt).Seconds(),
		"last_tick_age_ms": sinceOrNegative(stats.LastTickAt),
		"ticks_served":     stats.TicksServed,
		"rpc_latency_ms":   s.rpc.LatencyMs(),
		"healthy":          s.checker.Healthy(),
		"components":       s.checker.GetStatuses(),
	}
	if !s.checker.Healthy() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(body)
	}
	return c.JSON(body)
}

func sinceOrNegative(t time.Time) float64 {
	if t.IsZero() {
		return -1
	}
	return float64(time.Since(t).Milliseconds())
}

// Start begins serving, blocking until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	log.Info().Str("addr", addr).Msg("statusapi: starting liveness server")
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
