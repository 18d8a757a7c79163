// Command sendbatch delivers a YAML batch of emails through the configured
// relay and exits non-zero if any item failed.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/OliverSchlueter/goutils/sloki"
	"github.com/fancyinnovations/mailout/internal/config"
	"github.com/fancyinnovations/mailout/internal/email"
	"github.com/fancyinnovations/mailout/internal/mailer"
	"gopkg.in/yaml.v3"
)

type batchFile struct {
	Emails []email.Options `yaml:"emails"`
}

func main() {
	configPath := flag.String("config", os.Getenv("MAILOUT_CONFIG"), "service configuration file")
	batchPath := flag.String("batch", "batch.yml", "batch file with emails to send")
	flag.Parse()

	lokiService := sloki.NewService(sloki.Configuration{
		Service:      "mailout-sendbatch",
		ConsoleLevel: slog.LevelInfo,
		EnableLoki:   false,
	})
	slog.SetDefault(slog.New(lokiService))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", sloki.WrapError(err))
		os.Exit(1)
	}

	data, err := os.ReadFile(*batchPath)
	if err != nil {
		slog.Error("Failed to read batch file", sloki.WrapError(err))
		os.Exit(1)
	}

	var batch batchFile
	if err := yaml.Unmarshal(data, &batch); err != nil {
		slog.Error("Failed to parse batch file", sloki.WrapError(err))
		os.Exit(1)
	}

	mailerCfg := cfg.SMTP.MailerConfiguration()
	items := make([]mailer.Item, len(batch.Emails))
	for i, opts := range batch.Emails {
		items[i] = mailer.Item{Config: mailerCfg, Email: opts}
	}

	outcomes := mailer.ProcessBatch(items)

	failed := 0
	for i, o := range outcomes {
		if o.Success {
			slog.Info("Delivered", slog.Int("item", i), slog.String("response", o.Response))
			continue
		}
		failed++
		slog.Error("Failed", slog.Int("item", i), sloki.WrapError(o.Err))
	}

	slog.Info("Batch finished",
		slog.Int("total", len(outcomes)),
		slog.Int("failed", failed),
	)
	if failed > 0 {
		os.Exit(1)
	}
}
