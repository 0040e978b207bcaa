package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/merklejerk/wacom-profile-daemon/internal/engine"
	"github.com/merklejerk/wacom-profile-daemon/internal/metrics"
)

// Server hosts the daemon control socket and serves requests.
type Server struct {
	engine     *engine.Engine
	collector  *metrics.Collector
	logger     zerolog.Logger
	reload     func(reason string) error
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a control server for the given engine.
func NewServer(eng *engine.Engine, collector *metrics.Collector, logger zerolog.Logger, reload func(reason string) error) (*Server, error) {
	path, err := DefaultSocketPath()
	if err != nil {
		return nil, err
	}
	return &Server{
		engine:     eng,
		collector:  collector,
		logger:     logger,
		reload:     reload,
		socketPath: path,
	}, nil
}

// Serve listens on the control socket until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.prepareSocket(); err != nil {
		return err
	}
	s.logger.Info().Str("socket", s.socketPath).Msg("control server listening")
	defer s.cleanup()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	}()

	for {
		conn, err := s.accept(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.logger.Error().Err(err).Msg("control accept error")
			continue
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, context.Canceled
	}
	conn, err := listener.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return conn, nil
}

func (s *Server) prepareSocket() error {
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on control socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod control socket: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

func (s *Server) cleanup() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Msg("remove control socket")
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	var req Request
	if err := dec.Decode(&req); err != nil {
		s.writeError(conn, fmt.Errorf("decode request: %w", err))
		return
	}
	switch req.Action {
	case ActionStatus:
		s.handleStatus(conn)
	case ActionDevices:
		s.handleDevices(conn)
	case ActionReload:
		s.handleReload(conn)
	case ActionResolve:
		s.handleResolve(ctx, conn)
	case ActionMetrics:
		s.writeOK(conn, MetricsResult{Metrics: s.collector.Snapshot()})
	default:
		s.writeError(conn, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (s *Server) handleStatus(conn net.Conn) {
	status := DaemonStatus{
		DryRun:  s.engine.DryRun(),
		Devices: s.deviceStatuses(),
	}
	if snap := s.engine.Focused(); snap.Focused() {
		status.ActiveWindow = &WindowStatus{ID: snap.ID, Title: snap.Title, Classes: snap.Classes}
	}
	for _, rs := range s.engine.Rulesets() {
		entry := RulesetStatus{Prefix: rs.Prefix, Rules: make([]string, 0, len(rs.Rules))}
		for _, rule := range rs.Rules {
			entry.Rules = append(entry.Rules, rule.Name)
		}
		status.Rulesets = append(status.Rulesets, entry)
	}
	s.writeOK(conn, status)
}

func (s *Server) handleDevices(conn net.Conn) {
	s.writeOK(conn, s.deviceStatuses())
}

func (s *Server) deviceStatuses() []DeviceStatus {
	devices := s.engine.Devices()
	out := make([]DeviceStatus, 0, len(devices))
	for _, dev := range devices {
		entry := DeviceStatus{ID: dev.ID, Name: dev.Name, Type: string(dev.Type)}
		if dev.HasArea {
			entry.InitialArea = dev.InitialArea.String()
		}
		out = append(out, entry)
	}
	return out
}

func (s *Server) handleReload(conn net.Conn) {
	if s.reload == nil {
		s.writeError(conn, errors.New("reload not supported"))
		return
	}
	if err := s.reload("control request"); err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, nil)
}

func (s *Server) handleResolve(ctx context.Context, conn net.Conn) {
	resolutions, err := s.engine.PreviewResolution(ctx)
	if err != nil {
		s.writeError(conn, err)
		return
	}
	s.writeOK(conn, ResolveResult{Resolutions: resolutions})
}

func (s *Server) writeOK(conn net.Conn, data any) {
	resp := Response{Status: StatusOK}
	if data != nil {
		resp.Data = data
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

func (s *Server) writeError(conn net.Conn, err error) {
	resp := Response{Status: StatusError}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(conn).Encode(resp)
}
