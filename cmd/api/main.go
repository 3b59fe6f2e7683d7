package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"frontdesk/internal/actions"
	"frontdesk/internal/agent"
	"frontdesk/internal/audit"
	"frontdesk/internal/auth"
	"frontdesk/internal/bridge"
	"frontdesk/internal/calllog"
	"frontdesk/internal/config"
	"frontdesk/internal/customers"
	"frontdesk/internal/directory"
	"frontdesk/internal/httpapi"
	"frontdesk/internal/reporting"
	"frontdesk/internal/routing"
	"frontdesk/internal/telephony"
	"frontdesk/pkg/logger"
	"frontdesk/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	officeTZ, err := time.LoadLocation(cfg.Office.Timezone)
	if err != nil {
		log.Error("invalid office timezone", "tz", cfg.Office.Timezone, "err", err)
		os.Exit(1)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	callStore := calllog.NewPostgresStore(db)
	custLookup := customers.NewPostgresLookup(db)
	staffDir := directory.NewPostgresDirectory(db, rdb)
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	registry := agent.NewRegistry()
	engine := routing.NewEngine(routing.Config{
		Location:        officeTZ,
		OpenHour:        cfg.Office.OpenHour,
		CloseHour:       cfg.Office.CloseHour,
		MaxLiveSessions: cfg.Agent.MaxLiveSessions,
	}, rdb, log)

	callControl := telephony.NewTwilioCallControl(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
	actionRouter := actions.NewRouter(callControl, staffDir, callStore, auditSvc, cfg.Twilio.PhoneNumber, log)

	agentCfg := agent.Config{
		WSURL:   cfg.Agent.WSURL,
		APIKey:  cfg.Agent.APIKey,
		AgentID: cfg.Agent.AgentID,
		Logger:  log,
	}
	bridgeHandler := bridge.NewHandler(bridge.Config{
		ConnectTimeout: cfg.Agent.ConnectTimeout,
		IdleTimeout:    cfg.Agent.IdleTimeout,
	}, agentCfg, registry, actionRouter, log)

	gateway := telephony.NewGateway(callStore, custLookup, engine, registry, auditSvc, cfg.StreamURL())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		gateway: gateway,
		bridge:  bridgeHandler,
		api: httpapi.Handlers{
			Calls:    callStore,
			Reports:  reporting.NewService(callStore),
			Override: engine,
			Staff:    staffDir,
			Audit:    auditSvc,
		},
		authMW:      auth.RequireAccessToken(authManager),
		signatureMW: telephony.RequireSignature(cfg.Twilio.AuthToken, cfg.Twilio.SignatureBypass),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Media-stream sockets outlive any sane write timeout; hijacked
		// connections are not subject to it, so this only guards webhooks.
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
