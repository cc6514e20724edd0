package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/tokentables/internal/config"
	"github.com/yndnr/tokentables/internal/core/domain"
	"github.com/yndnr/tokentables/internal/core/service"
	"github.com/yndnr/tokentables/internal/infra/buildinfo"
	"github.com/yndnr/tokentables/internal/infra/confloader"
	"github.com/yndnr/tokentables/internal/infra/shutdown"
	"github.com/yndnr/tokentables/internal/storage"
	"github.com/yndnr/tokentables/internal/telemetry/logger"
	"github.com/yndnr/tokentables/internal/telemetry/metric"
)

// ServeCommand runs the tables until interrupted.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the token tables with their sweeper and metrics endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Override metrics.addr",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, loader, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	if addr := c.String("metrics-addr"); addr != "" {
		cfg.Metrics.Addr = addr
	}

	log.Info("starting tokentables",
		"version", buildinfo.Get().Version,
		"config", loader.FilePath(),
		"storage_engine", cfg.Storage.Engine,
		"partitions", cfg.Tables.Partitions)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	d, err := newDaemon(c.Context, cfg, loader, log)
	if err != nil {
		return err
	}
	return d.run(c.Context)
}

// daemon owns the long-running components of serve.
type daemon struct {
	cfg    *config.Config
	loader *confloader.Loader
	log    logger.Logger

	kv       storage.KVEngine
	registry *metric.Registry
	pool     *service.Pool
	sweeper  *service.Sweeper
	shutdown *shutdown.Handler

	metricsServer *http.Server
	metricsLn     net.Listener
	watcher       *confloader.Watcher
}

func newDaemon(ctx context.Context, cfg *config.Config, loader *confloader.Loader, log logger.Logger) (*daemon, error) {
	d := &daemon{
		cfg:      cfg,
		loader:   loader,
		log:      log,
		registry: metric.NewRegistry(),
		shutdown: shutdown.NewHandler(cfg.ShutdownTimeout, log),
	}

	kv, err := storage.Open(cfg.StorageEngine(), log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	d.kv = kv
	d.shutdown.OnShutdown("storage", func(context.Context) error {
		return kv.Close()
	})
	if be, ok := kv.(*storage.BadgerEngine); ok {
		be.RegisterMetrics(d.registry.Registerer())
	}

	store, err := storage.OpenTableStore(ctx, kv, cfg.StorageSecurity(), log)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("open table store: %w", err)
	}
	if inv, err := store.Inventory(ctx); err == nil {
		log.Info("table store opened",
			"sessions", inv.Sessions,
			"values", inv.Values)
	}

	creator := domain.TokenCreatorByName(cfg.Tables.Generator)
	tablesCfg := cfg.Service()
	d.pool = service.NewPool(cfg.Tables.Partitions, func(i int) *service.TokenTables {
		return service.New(store.Partition(i), tablesCfg,
			service.WithLogger(log.With("partition", i)),
			service.WithMetrics(d.registry),
			service.WithTokenCreator(creator))
	})

	collector := metric.NewCollector(d.tableSizes, d.storageSizes)
	if err := collector.Register(d.registry); err != nil {
		kv.Close()
		return nil, fmt.Errorf("register collector: %w", err)
	}

	d.sweeper = service.NewSweeper(d.pool, cfg.Tables.ChopInterval, log)

	if cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			kv.Close()
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		d.metricsLn = ln
	}
	return d, nil
}

func (d *daemon) tableSizes() metric.TableSizes {
	s := d.pool.Stats()
	return metric.TableSizes{
		Sessions:     s.Sessions,
		Tokens:       s.Tokens,
		Transferable: s.Transferable,
		Orphans:      s.Orphans,
		Detached:     s.Detached,
	}
}

func (d *daemon) storageSizes() (int64, int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := d.kv.Stats(ctx)
	if err != nil {
		return 0, 0, err
	}
	// Badger knows its size but not its key count; the others the reverse.
	if st.Engine == storage.EngineBadger {
		return -1, int64(st.TotalSize), nil
	}
	return int64(st.TotalKeys), -1, nil
}

// run starts the components and blocks until shutdown completes.
func (d *daemon) run(ctx context.Context) error {
	d.sweeper.Start()
	d.shutdown.OnShutdown("sweeper", func(context.Context) error {
		d.sweeper.Stop()
		return nil
	})

	if d.metricsLn != nil {
		d.serveMetrics()
	}

	if path := d.loader.FilePath(); path != "" {
		if err := d.watchConfig(path); err != nil {
			d.log.Warn("config reload disabled", "error", err)
		}
	}

	d.log.Info("tokentables started")
	err := d.shutdown.Wait(ctx)
	if err != nil {
		d.log.Error("shutdown error", "error", err)
		return err
	}
	d.log.Info("tokentables stopped")
	return nil
}

func (d *daemon) serveMetrics() {
	ln := d.metricsLn
	mux := http.NewServeMux()
	mux.Handle(d.cfg.Metrics.Path, d.registry.Handler())
	d.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		d.log.Info("metrics endpoint listening", "addr", ln.Addr().String(), "path", d.cfg.Metrics.Path)
		if err := d.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("metrics endpoint error", "error", err)
			d.shutdown.Trigger("metrics endpoint failed")
		}
	}()

	d.shutdown.OnShutdown("metrics", d.metricsServer.Shutdown)
}

// metricsAddr returns the bound metrics address, empty when disabled.
func (d *daemon) metricsAddr() string {
	if d.metricsLn == nil {
		return ""
	}
	return d.metricsLn.Addr().String()
}

func (d *daemon) watchConfig(path string) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(d.log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return err
	}
	w.OnChange(func(string) { d.reload() })
	w.StartAsync()
	d.watcher = w

	d.shutdown.OnShutdown("config watcher", func(context.Context) error {
		return w.Stop()
	})
	return nil
}

// reload re-reads the configuration and applies the settings that can
// change at runtime: the log level and the general timeouts.
func (d *daemon) reload() {
	cfg, err := config.Reload(d.loader)
	if err != nil {
		d.log.Warn("config reload rejected", "error", err)
		return
	}

	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		d.log.Warn("log level not changed", "error", err)
	}
	d.pool.Each(func(t *service.TokenTables) error {
		t.SetGeneralSessionTimeout(cfg.Tables.SessionTimeout)
		t.SetGeneralTokenTimeout(cfg.Tables.TokenTimeout)
		return nil
	})

	d.log.Info("configuration reloaded",
		"log_level", cfg.Log.Level,
		"session_timeout", cfg.Tables.SessionTimeout,
		"token_timeout", cfg.Tables.TokenTimeout)
}
