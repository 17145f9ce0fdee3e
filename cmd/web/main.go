// cmd/web/main.go
//
// Lab site – HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Console logger until config is loaded.
//
//  2. Config: conf/.env, conf/site.yaml, LAB_ overrides, vault: secrets.
//
//  3. Rotating JSON logger (tees to console when running in a TTY).
//
//  4. Database: open, run every component's migrations, then seed
//     defaults and the first administrator.
//
//  5. Shared collaborators: list cache, page-changed notifier, upload
//     store, and session manager.
//
//  6. Router: HTTPS redirect, security headers, request info, access log,
//     and session loading wrap every component's routes, plus /health,
//     /metrics, and the uploaded files.
//
//  7. Serve until SIGINT or SIGTERM, then drain.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/acmlab/labsite/internal/auth"
	"github.com/acmlab/labsite/internal/cache"
	"github.com/acmlab/labsite/internal/component"
	"github.com/acmlab/labsite/internal/config"
	"github.com/acmlab/labsite/internal/database"
	"github.com/acmlab/labsite/internal/logger"
	"github.com/acmlab/labsite/internal/middleware"
	"github.com/acmlab/labsite/internal/notify"
	"github.com/acmlab/labsite/internal/requestinfo"
	"github.com/acmlab/labsite/internal/respond"
	"github.com/acmlab/labsite/internal/server"
	"github.com/acmlab/labsite/internal/session"
	"github.com/acmlab/labsite/internal/upload"
	"github.com/acmlab/labsite/internal/users"

	_ "github.com/acmlab/labsite/components/auth"
	_ "github.com/acmlab/labsite/components/awards"
	_ "github.com/acmlab/labsite/components/debug"
	_ "github.com/acmlab/labsite/components/innovation"
	_ "github.com/acmlab/labsite/components/notifications"
	_ "github.com/acmlab/labsite/components/papers"
	_ "github.com/acmlab/labsite/components/team"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	boot := logger.Bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		// run may have replaced the global logger; use whichever is current.
		zap.S().Errorw("fatal", "err", err)
		_ = zap.L().Sync()
		boot.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Config and logger ───────────────────────────────────────────
	//
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Paths.Root, cfg.Log.Level, runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer log.Sync()

	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.OpenGeo(cfg.GeoIP.DBPath); err != nil {
			log.Warnw("geoip disabled", "path", cfg.GeoIP.DBPath, "err", err)
		}
		defer requestinfo.CloseGeo()
	}

	//
	// ── 2.  Database, schema, and seeds ─────────────────────────────────
	//
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open %s database: %w", cfg.Database.Driver, err)
	}
	defer db.Close()
	log.Infow("database online", "driver", cfg.Database.Driver)

	env := &component.Env{Config: cfg, DB: db, Users: users.NewStore(db)}

	comps := component.All()
	for _, c := range comps {
		if err := database.Migrate(ctx, db, c.Migrations()); err != nil {
			return fmt.Errorf("migrate %s: %w", c.Name(), err)
		}
	}
	for _, c := range comps {
		if in, ok := c.(component.Initializer); ok {
			if err := in.Init(ctx, env); err != nil {
				return fmt.Errorf("init %s: %w", c.Name(), err)
			}
		}
	}
	if err := env.Users.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.DisplayName); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Infow("components ready", "components", component.AllNames())

	//
	// ── 3.  Shared collaborators ────────────────────────────────────────
	//
	env.Cache = cache.New(cfg.Cache.Capacity, cfg.Cache.TTL)

	if cfg.Notify.RedisAddr != "" {
		rn, err := notify.NewRedis(ctx, cfg.Notify.RedisAddr, cfg.Notify.Channel)
		if err != nil {
			return fmt.Errorf("notifier: %w", err)
		}
		defer rn.Close()
		env.Notifier = rn
	} else {
		env.Notifier = notify.Log{}
	}

	uploadDir := cfg.Uploads.Dir
	if env.Uploads, err = upload.New(uploadDir, cfg.Uploads.BaseURL, cfg.Uploads.MaxBytes); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	env.Sessions = session.New(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.Secure)

	//
	// ── 4.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(
		middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS),
		middleware.Security,
		requestinfo.Enrich,
		middleware.AccessLog,
		chimw.Recoverer,
		auth.Load(env.Sessions),
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			respond.Error(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	base := strings.TrimSuffix(cfg.Uploads.BaseURL, "/")
	r.Handle(base+"/*", http.StripPrefix(base+"/", http.FileServer(noDirFS{http.Dir(uploadDir)})))

	for _, c := range comps {
		c.Routes(r, env)
	}

	if cfg.HTTP.StaticDir != "" {
		r.Handle("/*", http.FileServer(noDirFS{http.Dir(cfg.HTTP.StaticDir)}))
	}

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	ln, err := net.Listen("tcp", cfg.HTTP.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTP.ListenAddr, err)
	}
	return server.Run(ctx, server.New(cfg.HTTP.ListenAddr, r), ln, server.ShutdownGrace)
}

// noDirFS hides directory listings.
type noDirFS struct{ fs http.FileSystem }

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	if st, err := f.Stat(); err == nil && st.IsDir() {
		idx, err := n.fs.Open(strings.TrimSuffix(name, "/") + "/index.html")
		if err != nil {
			f.Close()
			return nil, os.ErrNotExist
		}
		idx.Close()
	}
	return f, nil
}
