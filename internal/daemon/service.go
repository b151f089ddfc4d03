package daemon

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/danmuck/keybridge/internal/bridge"
	"github.com/danmuck/keybridge/internal/config"
	"github.com/danmuck/keybridge/internal/keymod"
	"github.com/danmuck/keybridge/internal/netlink"
	"github.com/danmuck/keybridge/internal/observability"
	"github.com/danmuck/keybridge/internal/protocol"
)

// Service runs the bridge daemon lifecycle: single-instance lock, key
// module registry bracket, channel setup, and the dispatch loop. Run
// returns nil only on peer-initiated clean shutdown.
type Service struct {
	cfg config.Config
	log zerolog.Logger

	// openConn lets tests substitute the netlink endpoint.
	openConn func() (netlink.Conn, error)
}

func NewService(cfg config.Config, log zerolog.Logger) *Service {
	s := &Service{cfg: cfg, log: log}
	s.openConn = func() (netlink.Conn, error) {
		return netlink.Open(cfg.NetlinkProtocol)
	}
	return s
}

func (s *Service) Run() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	lock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.log.Warn().Err(err).Msg("failed to release daemon lock")
		}
	}()

	passphrase, err := s.readPassphrase()
	if err != nil {
		return err
	}

	// Registry init brackets the loop; a failure here never enters it.
	registry, err := keymod.Init(s.cfg.StorePath, passphrase, s.log)
	if err != nil {
		return fmt.Errorf("register key modules: %w", err)
	}
	defer func() {
		if err := registry.Teardown(); err != nil {
			s.log.Warn().Err(err).Msg("registry teardown failed")
		}
	}()

	conn, err := s.openConn()
	if err != nil {
		return err
	}
	defer conn.Close()

	if srv := s.serveMetrics(); srv != nil {
		defer func() {
			if err := srv.Close(); err != nil {
				s.log.Warn().Err(err).Msg("failed to close metrics listener")
			}
		}()
	}

	limits := protocol.Limits{MaxFrameBytes: s.cfg.MaxFrameBytes}
	handler := keymod.NewHandler(registry, s.log)
	loop := bridge.NewLoop(conn, handler, s.cfg.ErrorThreshold, limits, s.log)

	s.log.Info().
		Int("netlink_protocol", s.cfg.NetlinkProtocol).
		Int("error_threshold", s.cfg.ErrorThreshold).
		Uint32("max_frame_bytes", s.cfg.MaxFrameBytes).
		Msg("keybridged entering dispatch loop")

	err = loop.Run()
	if err != nil {
		s.log.Error().Err(err).Msg("dispatch loop terminated fatally")
		return err
	}
	s.log.Info().Msg("kernel requested shutdown")
	return nil
}

func (s *Service) acquireLock() (*flock.Flock, error) {
	if dir := filepath.Dir(s.cfg.LockPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure lock directory: %w", err)
		}
	}
	lock := flock.New(s.cfg.LockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another keybridged instance is already running (lock %s)", s.cfg.LockPath)
	}
	return lock, nil
}

func (s *Service) readPassphrase() ([]byte, error) {
	raw, err := os.ReadFile(s.cfg.PassphraseFile)
	if err != nil {
		return nil, fmt.Errorf("read passphrase file: %w", err)
	}
	secret := bytes.TrimSpace(raw)
	if len(secret) == 0 {
		return nil, fmt.Errorf("passphrase file %s is empty", s.cfg.PassphraseFile)
	}
	return secret, nil
}

// serveMetrics starts the optional scrape listener and returns it so the
// caller can close it on exit. The daemon does not depend on it; a listener
// failure is logged and ignored.
func (s *Service) serveMetrics() *http.Server {
	if s.cfg.MetricsAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	srv := &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Warn().Err(err).Str("addr", s.cfg.MetricsAddr).Msg("metrics listener failed")
		}
	}()
	s.log.Info().Str("addr", s.cfg.MetricsAddr).Msg("metrics listener started")
	return srv
}
