package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/charliek/logan/internal/api"
	"github.com/charliek/logan/internal/config"
	"github.com/charliek/logan/internal/constants"
	"github.com/charliek/logan/internal/logger"
	"github.com/charliek/logan/internal/logs"
	"github.com/charliek/logan/internal/metrics"
	"github.com/charliek/logan/internal/registry"
	"github.com/charliek/logan/internal/runstate"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Discover log files and serve the API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Override the API port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if servePort != 0 {
		if servePort < 1 || servePort > 65535 {
			return fmt.Errorf("invalid port: %d (must be 1-65535)", servePort)
		}
		cfg.API.Port = servePort
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	undo := zap.ReplaceGlobals(log.Desugar())
	defer undo()

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}

	pidFile, err := runstate.Acquire("")
	if err != nil {
		return err
	}
	defer func() { _ = pidFile.Release() }()

	ln, err := net.Listen("tcp", svc.server.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", svc.server.Addr(), err)
	}

	state := &runstate.State{
		PID:        os.Getpid(),
		Host:       cfg.API.Host,
		Port:       ln.Addr().(*net.TCPAddr).Port,
		StartedAt:  time.Now(),
		ConfigFile: cfg.Path,
		Roots:      cfg.Discovery.Roots,
	}
	if err := state.Write(""); err != nil {
		log.Warnw("could not write state file", "error", err)
	}
	defer func() { _ = runstate.Remove("") }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Starting logan with config: %s\n", displayConfigPath(cfg))
	fmt.Fprintf(cmd.OutOrStdout(), "API server: http://%s\n", ln.Addr())

	return svc.run(ctx, ln)
}

func displayConfigPath(cfg *config.Config) string {
	if cfg.Path == "" {
		return "(environment)"
	}
	return cfg.Path
}

// service wires the registry, discovery, query manager and API server
// built from one configuration.
type service struct {
	manager  *logs.Manager
	watcher  *registry.Watcher
	server   *api.Server
	log      *zap.SugaredLogger
	registry *prometheus.Registry
}

func newService(cfg *config.Config, log *zap.SugaredLogger) (*service, error) {
	log = logger.OrNop(log)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	resolver := ownerResolver(cfg, log)

	disc := registry.NewDiscoverer(registry.DiscoveryConfig{
		Roots:      cfg.Discovery.Roots,
		Extensions: cfg.Discovery.Extensions,
		Suffix:     cfg.Discovery.Suffix,
		Workers:    cfg.Discovery.Workers,
	}, resolver, log.Named("discovery"), m)

	reg := registry.New()
	mgr := logs.NewManager(reg, disc, managerConfig(cfg), log.Named("logs"), m)

	svc := &service{
		manager:  mgr,
		log:      log,
		registry: promReg,
	}

	if cfg.Discovery.Watch || cfg.RescanInterval() > 0 {
		w, err := registry.NewWatcher(disc, reg, mgr.Refresh, registry.WatcherConfig{
			Debounce: cfg.WatchDebounce(),
			Interval: cfg.RescanInterval(),
		}, log.Named("watcher"))
		if err != nil {
			return nil, fmt.Errorf("creating watcher: %w", err)
		}
		svc.watcher = w
	}

	handlers := api.NewHandlers(mgr, cfg.Path)
	svc.server = api.NewServer(api.ServerConfig{
		Host:            cfg.API.Host,
		Port:            cfg.API.Port,
		SearchRateLimit: cfg.Search.RateLimit,
		SearchRateBurst: cfg.Search.RateBurst,
	}, handlers, promReg, log.Named("api"))

	return svc, nil
}

// ownerResolver chains the static owners map ahead of the Docker lookup
func ownerResolver(cfg *config.Config, log *zap.SugaredLogger) registry.OwnerResolver {
	var chain registry.ChainResolver
	if len(cfg.Owners) > 0 {
		chain = append(chain, registry.StaticResolver(cfg.Owners))
	}
	if cfg.DockerEnabled() {
		docker, err := registry.NewDockerResolver(cfg.Docker.Socket, cfg.DockerTimeout(), log.Named("docker"))
		if err != nil {
			log.Warnw("docker owner lookup disabled", "socket", cfg.Docker.Socket, "error", err)
		} else {
			chain = append(chain, docker)
		}
	}
	return chain
}

func managerConfig(cfg *config.Config) logs.ManagerConfig {
	mc := logs.DefaultManagerConfig()
	mc.DefaultLines = cfg.Window.DefaultLines
	mc.MaxLines = cfg.Window.MaxLines
	mc.DefaultBefore = cfg.BeforeContext()
	mc.DefaultAfter = cfg.AfterContext()
	mc.Search.Workers = cfg.Search.Workers
	mc.Search.FileTimeout = cfg.FileTimeout()
	mc.Search.MaxContext = cfg.Search.MaxContext
	mc.Search.MaxPatternLength = cfg.Search.MaxPatternLength
	return mc
}

// run performs the initial discovery, then serves on ln until ctx is
// cancelled or the server fails.
func (s *service) run(ctx context.Context, ln net.Listener) error {
	start := time.Now()
	snap, err := s.manager.Rediscover(ctx)
	if err != nil {
		ln.Close()
		return fmt.Errorf("initial discovery: %w", err)
	}
	s.log.Infow("discovered log files", "files", snap.Len(), "duration", time.Since(start))

	if s.watcher != nil {
		go s.watcher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		s.log.Infow("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("api server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
	defer cancel()

	// Followers first, so open follow streams return before Shutdown waits on them
	s.manager.Close()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warnw("api shutdown", "error", err)
	}

	s.log.Infow("shutdown complete")
	return serveErr
}
