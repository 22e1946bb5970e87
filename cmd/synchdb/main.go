// Command synchdb is the ingestion daemon: it loads the daemon and
// per-connector configuration, wires one Supervisor goroutine per
// configured connector, and exposes the admin surface over HTTP.
// Grounded on the teacher's cmd/supervisor/cmd/main.go Supervisor
// struct and ordered startup/shutdown sequence, generalized from
// "manage gRPC + services" to "manage the admin HTTP server + one
// goroutine per connector".
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hornetlabs/synchdb/internal/adminapi"
	"github.com/hornetlabs/synchdb/internal/apply"
	"github.com/hornetlabs/synchdb/internal/catalog"
	"github.com/hornetlabs/synchdb/internal/config"
	"github.com/hornetlabs/synchdb/internal/connector"
	"github.com/hornetlabs/synchdb/internal/destination"
	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulefile"
	"github.com/hornetlabs/synchdb/internal/rulestore"
	"github.com/hornetlabs/synchdb/internal/source"
	"github.com/hornetlabs/synchdb/internal/source/dbprobe"
	"github.com/hornetlabs/synchdb/internal/status"
	"github.com/hornetlabs/synchdb/internal/status/redisbackend"
	"github.com/hornetlabs/synchdb/internal/synclog"
	"github.com/hornetlabs/synchdb/internal/typemap"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	configPath := flag.String("config", "./synchdb.yaml", "path to the daemon config file")
	connectorsDir := flag.String("connectors", "./connectors.d", "directory of per-connector YAML config files")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("synchdb (dev build)")
		return
	}

	logger := synclog.New("synchdb")

	if err := run(*configPath, *connectorsDir, logger); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// daemon bundles every long-lived component a running process owns,
// mirroring the teacher's process-level Supervisor struct (renamed
// here to avoid colliding with connector.Supervisor, the per-connector
// concept this whole module is built around).
type daemon struct {
	logger  *synclog.Logger
	destCfg destination.Config // template: host/user/password/ssl/pool shared by every destination database
	status  *status.Surface
	mirror  *redisbackend.Mirror

	admin      *adminapi.Manager
	httpServer *http.Server

	destMu   sync.Mutex
	destPool map[string]*destination.PGDestination // keyed by destination database name

	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// destFor returns the pooled connection for database, opening one on
// first use. A connector's DestinationDatabase names a distinct
// Postgres database on the same destination server (spec's Destination
// config), so the daemon keeps one pgxpool per database rather than
// one for the whole process.
func (d *daemon) destFor(ctx context.Context, database string) (*destination.PGDestination, error) {
	d.destMu.Lock()
	defer d.destMu.Unlock()

	if dest, ok := d.destPool[database]; ok {
		return dest, nil
	}

	cfg := d.destCfg
	cfg.Database = database
	dest, err := destination.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect destination database %s: %w", database, err)
	}
	d.destPool[database] = dest
	return dest, nil
}

func (d *daemon) closeAllDest() {
	d.destMu.Lock()
	defer d.destMu.Unlock()
	for _, dest := range d.destPool {
		dest.Close()
	}
}

func run(configPath, connectorsDir string, logger *synclog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		return fmt.Errorf("synchdb: %w", err)
	}
	if err := config.EnsureMetadataDir(cfg.MetadataDir); err != nil {
		return fmt.Errorf("synchdb: %w", err)
	}

	d := &daemon{
		logger: logger,
		status: status.New(),
		destCfg: destination.Config{
			Host:              cfg.Destination.Host,
			Port:              cfg.Destination.Port,
			User:              cfg.Destination.User,
			Password:          cfg.Destination.Password,
			SSLMode:           cfg.Destination.SSLMode,
			MaxConnections:    cfg.Destination.MaxConnections,
			ConnectionTimeout: cfg.Destination.ConnectionTimeout,
		},
		destPool: make(map[string]*destination.PGDestination),
	}
	defer d.closeAllDest()

	if cfg.StatusBackend.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.StatusBackend.Redis.Addr})
		d.mirror = redisbackend.New(client)
		logger.Info("status mirror enabled at %s", cfg.StatusBackend.Redis.Addr)
	}

	d.admin = adminapi.NewManager(d.status, d.launch(cfg))

	entries, err := loadConnectorDir(connectorsDir)
	if err != nil {
		return fmt.Errorf("synchdb: %w", err)
	}
	for _, e := range entries {
		if code := d.admin.AddConnInfo(e.cfg, e.ruleFile); code != adminapi.StatusOK {
			logger.Error("connector %s: add_conninfo failed with status %d", e.cfg.Name, code)
			continue
		}
		if code := d.admin.Start(ctx, e.cfg.Name); code != adminapi.StatusOK {
			logger.Error("connector %s: start failed with status %d", e.cfg.Name, code)
		}
	}

	if d.mirror != nil {
		d.wg.Add(1)
		go d.runStatusMirror(ctx)
	}

	addr := cfg.AdminAPI.ListenAddr
	if addr == "" {
		addr = ":8089"
	}
	d.httpServer = &http.Server{Addr: addr, Handler: adminapi.NewServer(d.admin)}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		logger.Info("admin API listening on %s", addr)
		if err := d.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin API server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal %v, shutting down", sig)
	case <-ctx.Done():
	}

	d.shutdown(ctx)
	return nil
}

// runStatusMirror periodically republishes every connector's snapshot
// to Redis so a second process (or an external dashboard) can observe
// status without sharing this process's memory.
func (d *daemon) runStatusMirror(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, name := range d.admin.Names() {
				snap, ok := d.status.GetStatus(name)
				if !ok {
					continue
				}
				if err := d.mirror.Publish(ctx, snap); err != nil {
					d.logger.Warn("status mirror publish %s: %v", name, err)
				}
			}
		}
	}
}

// shutdown stops every running connector, then the admin HTTP server,
// waiting on each with a bounded timeout (spec §5's 100s producer-stop
// default governs each connector's own Stop; this just bounds how long
// the process waits for all of them together).
func (d *daemon) shutdown(ctx context.Context) {
	d.shutdownOnce.Do(func() {
		for _, name := range d.admin.Names() {
			d.admin.Stop(name)
		}

		deadline := time.After(shutdownGracePeriod)
		for _, name := range d.admin.Names() {
			for {
				snap, ok := d.status.GetStatus(name)
				if !ok || snap.State == model.StateStopped {
					break
				}
				select {
				case <-deadline:
					d.logger.Warn("connector %s did not stop within the shutdown grace period", name)
					goto nextConnector
				case <-time.After(100 * time.Millisecond):
				}
			}
		nextConnector:
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := d.httpServer.Shutdown(shutdownCtx); err != nil {
			d.logger.Warn("admin API shutdown: %v", err)
		}

		d.wg.Wait()
	})
}

// launch returns the adminapi.Launcher closure that builds a running
// Supervisor for one connector: this is the one place in the daemon
// with enough context (destination, status surface, status mirror) to
// wire a connector's Producer, Applier, and catalog probes together.
func (d *daemon) launch(cfg *config.DaemonConfig) adminapi.Launcher {
	return func(ctx context.Context, ccfg model.ConnectorConfig, registry *typemap.Registry, rules *rulestore.Store, ruleFile string) (*connector.Supervisor, error) {
		if ruleFile != "" {
			f, err := os.Open(ruleFile)
			if err != nil {
				return nil, fmt.Errorf("launch %s: open rule file: %w", ccfg.Name, err)
			}
			doc, err := rulefile.Load(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("launch %s: load rule file: %w", ccfg.Name, err)
			}
			doc.ApplyTypeRules(registry)
			doc.ApplyNameAndExpressionRules(rules)
		}

		dest, err := d.destFor(ctx, ccfg.DestinationDatabase)
		if err != nil {
			return nil, fmt.Errorf("launch %s: %w", ccfg.Name, err)
		}

		cache := catalog.New()
		applier := apply.New(dest, cache)

		connLogger := synclog.New(ccfg.Name)

		offsetFile := config.OffsetFilePath(cfg.MetadataDir, ccfg.SourceFlavor, ccfg.Name)
		producer := source.NewSubprocess(source.SubprocessConfig{
			Executable: producerExecutable(ccfg.SourceFlavor),
			Args:       producerArgs(ccfg, offsetFile),
			OffsetFile: offsetFile,
		})

		deps := connector.Deps{
			Status:    d.status,
			Applier:   applier,
			Cache:     cache,
			CatProbe:  dest,
			CatLoader: dest,
			Logger:    connLogger,
		}

		if ccfg.SnapshotMode == model.SnapshotSchemaSync {
			probe, err := dbprobe.Open(ccfg.SourceFlavor, sourceDSN(ccfg))
			if err != nil {
				return nil, fmt.Errorf("launch %s: open schema probe: %w", ccfg.Name, err)
			}
			deps.SchemaProbe = probe
		}

		return connector.New(ccfg, deps, registry, rules, producer), nil
	}
}

// producerExecutable resolves the external capture binary per source
// flavor. Each is expected on PATH; the daemon never embeds a capture
// runtime itself (spec §9: the Producer interface is process-agnostic).
func producerExecutable(flavor model.SourceFlavor) string {
	switch flavor {
	case model.MySQL:
		return "synchdb-mysql-producer"
	case model.SQLServer:
		return "synchdb-sqlserver-producer"
	case model.Oracle:
		return "synchdb-oracle-producer"
	default:
		return "synchdb-producer"
	}
}

func producerArgs(cfg model.ConnectorConfig, offsetFile string) []string {
	args := []string{
		"--host", cfg.Host,
		"--port", fmt.Sprintf("%d", cfg.Port),
		"--user", cfg.User,
		"--database", cfg.SourceDatabase,
		"--offset-file", offsetFile,
		"--snapshot-mode", string(cfg.SnapshotMode),
	}
	if len(cfg.TableIncludeList) > 0 {
		args = append(args, "--table-include-list", strings.Join(cfg.TableIncludeList, ","))
	}
	return args
}

func sourceDSN(cfg model.ConnectorConfig) string {
	switch cfg.SourceFlavor {
	case model.MySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", cfg.User, cfg.Credential, cfg.Host, cfg.Port, cfg.SourceDatabase)
	case model.SQLServer:
		return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s", cfg.User, cfg.Credential, cfg.Host, cfg.Port, cfg.SourceDatabase)
	case model.Oracle:
		return fmt.Sprintf("%s/%s@%s:%d/%s", cfg.User, cfg.Credential, cfg.Host, cfg.Port, cfg.SourceDatabase)
	default:
		return ""
	}
}

type connectorFileEntry struct {
	cfg      model.ConnectorConfig
	ruleFile string
}

// loadConnectorDir reads every *.yaml/*.yml file in dir as one
// connector config, resolving each config's rule_file path relative to
// dir if it isn't already absolute.
func loadConnectorDir(dir string) ([]connectorFileEntry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("glob connector configs: %w", err)
	}
	ymlMatches, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("glob connector configs: %w", err)
	}
	matches = append(matches, ymlMatches...)

	entries := make([]connectorFileEntry, 0, len(matches))
	for _, path := range matches {
		cfg, ruleFile, err := config.LoadConnectorConfig(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if ruleFile != "" && !filepath.IsAbs(ruleFile) {
			ruleFile = filepath.Join(dir, ruleFile)
		}
		entries = append(entries, connectorFileEntry{cfg: cfg, ruleFile: ruleFile})
	}
	return entries, nil
}
