// cmd/web/main.go
//
// Customer-site service, HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Load config (defaults → conf/.env → conf/global.yaml → legacy env →
//     SITES_ env), resolving `vault:` references.
//
//  2. Start daily rotating logger (tees to console when running in a TTY
//     or when log.console is set).
//
//  3. Open the configured storage backend and ensure its schema.
//
//  4. Build the root router: request info, access log, CORS, security
//     headers, /healthz, /metrics, and every registered component.
//
//  5. Serve until SIGINT or SIGTERM, then drain for up to 15 s.
//
// Large comment blocks are framed by blank "//" lines; inline comments use
// a single "//".
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yanizio/libretv-sites/internal/auth"
	"github.com/yanizio/libretv-sites/internal/backend"
	"github.com/yanizio/libretv-sites/internal/component"
	"github.com/yanizio/libretv-sites/internal/config"
	"github.com/yanizio/libretv-sites/internal/logger"
	"github.com/yanizio/libretv-sites/internal/requestinfo"
	"github.com/yanizio/libretv-sites/internal/server"

	_ "github.com/yanizio/libretv-sites/components/customersites"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logDir := cfg.Log.Dir
	if logDir != "" && !filepath.IsAbs(logDir) {
		logDir = filepath.Join(cfg.Paths.Root, logDir)
	}
	logOut, err := logger.New(logger.Options{
		Dir:   logDir,
		Level: cfg.Log.Level,
		Tee:   cfg.Log.Console || logger.RunningInTTY(),
	})
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	if cfg.Auth.Password == "" {
		logOut.Warn("auth.password is empty; every API request will be rejected")
	}

	//
	// ── 1.  Storage backend ─────────────────────────────────────────────
	//
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := backend.Open(openCtx, cfg.Storage)
	cancel()
	if err != nil {
		logOut.Fatalw("open storage", "backend", cfg.Storage.Backend, "err", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logOut.Warnw("close storage", "err", err)
		}
	}()

	//
	// ── 2.  Optional GeoIP for the access log ──────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.GeoIP.Path); err != nil {
		logOut.Warnw("geoip disabled", "path", cfg.GeoIP.Path, "err", err)
	}
	defer requestinfo.CloseGeo()

	//
	// ── 3.  Router ─────────────────────────────────────────────────────
	//
	authn := auth.New(cfg.Auth.Password,
		auth.WithMaxAge(cfg.Auth.MaxAge),
		auth.WithRequireTimestamp(cfg.Auth.RequireTimestamp),
	)
	handler, err := server.NewRouter(server.RouterOptions{
		Deps:       component.Deps{Store: st, Auth: authn, Log: logOut},
		ForceHTTPS: cfg.HTTP.ForceHTTPS,
	})
	if err != nil {
		logOut.Fatalw("build router", "err", err)
	}

	//
	// ── 4.  Serve with graceful shutdown ───────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, handler, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})

	errCh := make(chan error, 1)
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr, "backend", cfg.Storage.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logOut.Errorw("http server", "err", err)
		}
	case <-ctx.Done():
		logOut.Info("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logOut.Errorw("graceful shutdown", "err", err)
		}
	}
}
