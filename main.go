package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"studygroup/internal/auth"
	"studygroup/internal/config"
	"studygroup/internal/db"
	"studygroup/internal/logging"
	"studygroup/internal/observability"
	"studygroup/internal/rabbitmq"
	"studygroup/internal/repositories"
	"studygroup/internal/server"
	"studygroup/internal/telemetry"
	"studygroup/internal/ws"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Log)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	generated, err := cfg.CheckSessionSecret()
	if err != nil {
		logger.WithError(err).WithField("environment", cfg.Server.Environment).Fatal("refusing to start")
	}
	if generated {
		logger.Warn("SESSION_SECRET is empty; using a random key, sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Server.ServiceName, cfg.Server.Environment, cfg.Tracing.Endpoint)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	database, err := db.Connect(ctx, cfg.DB, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to db")
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	defer publisher.Close()
	mode := rabbitmq.PublisherMode(publisher)
	logger.WithFields(logrus.Fields{"mode": mode, "reason": rabbitmq.PublisherNoopReason(publisher)}).Info("event publisher ready")

	audit := telemetry.NewAuditEmitter(publisher, cfg.AMQP.AuditRoutingKey, cfg.Server.ServiceName, cfg.Server.Environment, logger)

	router := server.NewRouter(server.Deps{
		Config:        cfg,
		Logger:        logger,
		Sessions:      auth.NewSessionManager(cfg.Session),
		Users:         repositories.NewUserRepo(database),
		Posts:         repositories.NewPostRepo(database),
		Comments:      repositories.NewCommentRepo(database),
		Groups:        repositories.NewGroupRepo(database),
		GroupMessages: repositories.NewGroupMessageRepo(database),
		Messages:      repositories.NewMessageRepo(database),
		Hub:           ws.NewHub(publisher, logger),
		Audit:         audit,
		PublisherMode: mode,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Server.Port, "group_policy": cfg.Groups.Policy}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
