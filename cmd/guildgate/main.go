package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guildgate/internal/authflow"
	"guildgate/internal/bot"
	"guildgate/internal/config"
	"guildgate/internal/geoip"
	"guildgate/internal/guild"
	"guildgate/internal/identity"
	"guildgate/internal/notify"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	identityClient := identity.New(identity.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	})

	botSvc, err := bot.New(cfg, logger, identityClient)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started")

	handler := authflow.NewHandler(
		authflow.Config{GuildID: cfg.GuildID, RoleID: cfg.RoleID, AdminUserID: cfg.AdminUserID},
		identityClient,
		guild.NewService(botSvc.Session()),
		geoip.New(cfg.IPInfoToken),
		notify.New(botSvc.Session()),
		logger,
	)
	server := authflow.NewServer(cfg.HTTP.Addr, cfg.HTTP.StaticDir, handler)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = server.Shutdown(ctx)
	botSvc.Close(ctx)
}
