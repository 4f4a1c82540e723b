package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"corrMinvar/internal/metrics"
	"corrMinvar/internal/openai"
	"corrMinvar/internal/server"
	"corrMinvar/internal/telegram"
)

// serveCmd runs the Telegram webhook server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot webhook server",
	Long: `Register the webhook with Telegram and serve /telegram/webhook, /healthz and
/metrics. Needs TELEGRAM_BOT_TOKEN and WEBHOOK_PUBLIC_URL; OPENAI_API_KEY enables
a short commentary after each /minvar reply.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireBot(); err != nil {
		return err
	}

	store, closeDB, err := openStore(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer closeDB()
	log.Info().Str("path", cfg.Server.DBPath).Msg("db: schema ensured")

	deps := telegram.Deps{
		Config:   cfg,
		Analyzer: newAnalyzer(cfg, store),
		History:  store,
	}
	if cfg.Server.OpenAIKey != "" {
		deps.Commentator = openai.NewCommentator(cfg.Server.OpenAIKey)
	}

	tg, err := telegram.NewBot(cfg.Server.TelegramToken, cfg.Server.WebhookPublicURL, deps)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	mux := server.NewHTTPMux(tg.WebhookHandler, metrics.Handler())
	return server.ListenAndServe(cmd.Context(), ":"+cfg.Server.Port, mux)
}
