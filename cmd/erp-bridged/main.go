package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
	"gopkg.in/yaml.v3"

	erpbridge "github.com/goliatone/go-erp-bridge"
	"github.com/goliatone/go-erp-bridge/adapters/gologger"
	"github.com/goliatone/go-erp-bridge/adapters/prommetrics"
	"github.com/goliatone/go-erp-bridge/core"
	"github.com/goliatone/go-erp-bridge/httpapi"
	sqlstore "github.com/goliatone/go-erp-bridge/store/sql"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "path to a yaml configuration file")
		addr       = flag.String("addr", "", "listen address, overrides the configuration file")
		baseURL    = flag.String("endpoint", "", "remote ERP base url, overrides the configuration file")
		auditDSN   = flag.String("audit-dsn", "", "activity audit database dsn, overrides the configuration file")
	)
	flag.Parse()

	logger := gologger.Named("erp-bridged", nil, nil)

	runtime := core.Config{}
	runtime.Server.Addr = flagOrEnv(*addr, "ERP_BRIDGE_ADDR")
	runtime.Endpoint.BaseURL = flagOrEnv(*baseURL, "ERP_BRIDGE_ENDPOINT")
	runtime.Endpoint.Database = strings.TrimSpace(os.Getenv("ERP_BRIDGE_DATABASE"))
	runtime.Endpoint.Username = strings.TrimSpace(os.Getenv("ERP_BRIDGE_USERNAME"))
	runtime.Endpoint.Secret = strings.TrimSpace(os.Getenv("ERP_BRIDGE_SECRET"))
	runtime.Audit.DSN = flagOrEnv(*auditDSN, "ERP_BRIDGE_AUDIT_DSN")

	opts := []erpbridge.Option{
		erpbridge.WithLogger(logger),
	}
	if path := strings.TrimSpace(*configPath); path != "" {
		loader, err := newFileConfigLoader(path)
		if err != nil {
			logger.Error("load configuration file", "path", path, "error", err.Error())
			os.Exit(1)
		}
		opts = append(opts, erpbridge.WithConfigProvider(core.NewCfgxConfigProvider(loader)))
	}

	registry := prometheus.NewRegistry()
	opts = append(opts, erpbridge.WithMetricsRecorder(prommetrics.NewRecorder(registry)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resolve the configuration once so the audit store can open before the
	// dispatcher is wired.
	probe, err := erpbridge.NewService(runtime, opts...)
	if err != nil {
		logger.Error("resolve configuration", "error", err.Error())
		os.Exit(1)
	}
	cfg := probe.Config()

	var closeDB func()
	if dsn := strings.TrimSpace(cfg.Audit.DSN); dsn != "" {
		activityStore, cleanup, err := openActivityStore(ctx, dsn)
		if err != nil {
			logger.Error("open activity store", "dsn", dsn, "error", err.Error())
			os.Exit(1)
		}
		closeDB = cleanup
		cached, err := wrapCachedStore(activityStore)
		if err != nil {
			logger.Error("wrap cached activity store", "error", err.Error())
			os.Exit(1)
		}
		opts = append(opts, erpbridge.WithActivitySink(cached))
	}
	if closeDB != nil {
		defer closeDB()
	}

	service, err := erpbridge.Setup(runtime, opts...)
	if err != nil {
		logger.Error("setup bridge service", "error", err.Error())
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.NewHandler(service, logger))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "service", cfg.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("server failed", "error", err.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err.Error())
	}
}

// flagOrEnv prefers the flag value and falls back to the named environment
// variable. Secrets are only accepted through the environment or the file.
func flagOrEnv(flagValue string, envName string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	return strings.TrimSpace(os.Getenv(envName))
}

type fileConfigLoader struct {
	values map[string]any
}

func newFileConfigLoader(path string) (*fileConfigLoader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &fileConfigLoader{values: values}, nil
}

func (l *fileConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if l == nil || len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

func openActivityStore(ctx context.Context, dsn string) (*sqlstore.ActivityStore, func(), error) {
	var (
		sqlDB   *sql.DB
		dialect schema.Dialect
		err     error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sqlDB, err = sql.Open("postgres", dsn)
		dialect = pgdialect.New()
	} else {
		sqlDB, err = sql.Open("sqlite3", dsn)
		dialect = sqlitedialect.New()
	}
	if err != nil {
		return nil, nil, err
	}

	db := bun.NewDB(sqlDB, dialect)
	store, err := sqlstore.NewActivityStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}

func wrapCachedStore(base *sqlstore.ActivityStore) (*sqlstore.CachedActivityStore, error) {
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	cacheService, err := repositorycache.NewCacheService(config)
	if err != nil {
		return nil, err
	}
	return sqlstore.NewCachedActivityStore(base, cacheService)
}
