package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "library-backend/docs"
	"library-backend/internal/library/audit"
	"library-backend/internal/library/catalog"
	"library-backend/internal/library/inventory"
	"library-backend/internal/library/labels"
	"library-backend/internal/library/loans"
	"library-backend/internal/library/members"
	"library-backend/internal/platform/apperr"
	"library-backend/internal/platform/auth"
	"library-backend/internal/platform/db"
	"library-backend/internal/platform/requestid"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(*configPath)
		},
	}
}

// setupLogger: dev はテキスト、release は JSON
func setupLogger(mode string) {
	var h slog.Handler
	if mode == "release" {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}

func serve(configPath string) error {
	// 設定読み込み
	cfg, err := db.LoadConfig(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg.Mode)
	slog.Info("starting", "mode", cfg.Mode, "version", cfg.Version)

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or LIBRARY_JWT_SECRET) is required")
	}

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()
	slog.Info("connected to DB", "driver", cfg.DB.Driver, "dbname", cfg.DB.DBName)

	if err := db.Migrate(context.Background(), conn, cfg.DB.Driver); err != nil {
		return err
	}

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, conn)

	// 定期監査
	if cfg.Audit.Schedule != "" {
		runner, err := audit.New(conn, cfg.DB.Driver, slog.Default()).Schedule(cfg.Audit.Schedule)
		if err != nil {
			return err
		}
		defer runner.Stop()
		slog.Info("audit scheduled", "schedule", cfg.Audit.Schedule)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	useTLS := cfg.Certificate.Cert != "" && cfg.Certificate.Key != ""
	errCh := make(chan error, 1)
	go func() {
		var err error
		if useTLS {
			slog.Info("listening (TLS)", "addr", srv.Addr)
			err = srv.ListenAndServeTLS(cfg.Certificate.Cert, cfg.Certificate.Key)
		} else {
			slog.Info("listening", "addr", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	slog.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// newRouter wires every package onto one gin engine.
func newRouter(cfg *db.Config, conn *sql.DB) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), requestid.Middleware())
	_ = r.SetTrustedProxies(nil)

	if len(cfg.CORS.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestid.Header},
			ExposeHeaders:    []string{"Content-Length", "Location", requestid.Header},
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	memberSvc := members.NewService(conn)
	ledger := inventory.NewService(conn)
	secret := []byte(cfg.Auth.JWTSecret)

	// /api/v1
	api := r.Group("/api/v1")
	auth.RegisterRoutes(api, auth.NewService(memberSvc.Store(), secret, cfg.Auth.TokenTTL))

	authed := api.Group("", auth.RequireAuth(secret))
	members.RegisterRoutes(api, authed, memberSvc)
	inventory.RegisterRoutes(authed, ledger)
	loans.RegisterRoutes(authed, loans.NewSQLCoordinator(conn, memberSvc))
	catalog.RegisterRoutes(authed, catalog.NewService(conn, cfg.DB.Driver))
	labels.RegisterRoutes(authed, labels.NewService(ledger))

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, apperr.Body(apperr.CodeNotFound, "no such endpoint"))
			return
		}
		c.Status(http.StatusNotFound)
	})
	return r
}
