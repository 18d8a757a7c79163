package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/fancyinnovations/mailout/internal/config"
	"github.com/fancyinnovations/mailout/internal/queue"
	"github.com/fancyinnovations/mailout/internal/sendhandler"
	"github.com/fancyinnovations/mailout/internal/smtp"
)

func main() {
	cfg, err := config.Load(os.Getenv("MAILOUT_CONFIG"))
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	lokiService := sloki.NewService(sloki.Configuration{
		URL:          cfg.Logging.LokiURL,
		Service:      "mailout",
		ConsoleLevel: cfg.Logging.SlogLevel(),
		LokiLevel:    slog.LevelInfo,
		EnableLoki:   cfg.Logging.EnableLoki,
	})
	slog.SetDefault(slog.New(lokiService))

	mailerCfg := cfg.SMTP.MailerConfiguration()

	if cfg.DKIM.KeyFile != "" {
		signer, err := smtp.NewDKIMSigner(cfg.DKIM.Domain, cfg.DKIM.Selector, cfg.DKIM.KeyFile)
		if err != nil {
			slog.Error("Failed to load DKIM key", sloki.WrapError(err))
			os.Exit(1)
		}
		mailerCfg.DKIM = signer
	}

	mux := http.NewServeMux()
	sendhandler.New(mailerCfg).Register("/api/v1", mux)
	go func() {
		if err := http.ListenAndServe(cfg.HTTP.Listen, mux); err != nil {
			slog.Error("HTTP server stopped", sloki.WrapError(err))
			os.Exit(1)
		}
	}()
	slog.Info("Started HTTP API", slog.String("listen", cfg.HTTP.Listen))

	if cfg.Queue.URL != "" {
		qs, err := queue.NewService(queue.Configuration{
			URL:     cfg.Queue.URL,
			Subject: cfg.Queue.Subject,
			Group:   cfg.Queue.Group,
		})
		if err != nil {
			slog.Error("Failed to connect to NATS", sloki.WrapError(err))
			os.Exit(1)
		}
		go func() {
			if err := qs.Run(context.Background()); err != nil {
				slog.Error("Queue consumer stopped", sloki.WrapError(err))
			}
		}()
		slog.Info("Started queue consumer", slog.String("subject", cfg.Queue.Subject))
	}

	c := make(chan struct{})
	<-c
}
