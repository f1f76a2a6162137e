package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/intynet/neti/internal/config"
	"github.com/intynet/neti/internal/debounce"
	"github.com/intynet/neti/internal/engine"
	"github.com/intynet/neti/internal/gateway"
	"github.com/intynet/neti/internal/llm"
	"github.com/intynet/neti/internal/oracle"
	"github.com/intynet/neti/internal/overlay"
	"github.com/intynet/neti/internal/qiscus"
	"github.com/intynet/neti/internal/reply"
	"github.com/intynet/neti/internal/session"
	"github.com/intynet/neti/internal/ticketing"
)

var (
	servePort    int
	serveConfig  string
	serveEnvFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides config)")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "config file path")
	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", "", ".env file to load")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	if serveEnvFile != "" {
		if err := godotenv.Load(serveEnvFile); err != nil {
			log.Printf("[Serve] ⚠️ could not load %s: %v", serveEnvFile, err)
		}
	} else {
		godotenv.Load()
	}

	cfg, err := config.Load(serveConfig)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Gateway.Port = servePort
	}

	log.Println("[Serve] 🚀 starting Neti...")
	log.Printf("[Serve] 📍 environment: %s", cfg.Environment)
	log.Printf("[Serve] ⏱️ buffer quiet window: %.1fs", cfg.Buffer.QuietSeconds)

	store := session.NewStore(session.StoreConfig{
		RedisURL: cfg.Session.RedisURL,
		Password: cfg.Session.Password,
		DB:       cfg.Session.DB,
		TTL:      time.Duration(cfg.Session.TTLHours) * time.Hour,
	})
	defer store.Close()

	tpl, err := reply.Load(cfg.RepliesFile)
	if err != nil {
		log.Printf("[Serve] ⚠️ reply templates: %v (using defaults)", err)
	}

	chat := llm.NewClient(cfg.Oracle.APIKey, cfg.Oracle.APIBase, cfg.Oracle.Model)
	orc := oracle.New(chat)

	tickets := ticketing.NewClient(cfg.Ticketing.BaseURL, cfg.Ticketing.APIKey)

	chatPlatform := qiscus.NewClient(qiscus.Config{
		AppID:      cfg.Qiscus.AppID,
		SecretKey:  cfg.Qiscus.SecretKey,
		BaseURL:    cfg.Qiscus.BaseURL,
		SendURL:    cfg.Qiscus.SendURL,
		TagID:      cfg.Qiscus.TagID,
		TagName:    cfg.Qiscus.TagName,
		ExpiryDays: cfg.Qiscus.TagExpiryDays,
	})

	eng := engine.New(orc, tickets, tickets, tpl)
	ovl := overlay.New(store, chatPlatform, chatPlatform, eng, tpl)
	deb := debounce.New(time.Duration(cfg.Buffer.QuietSeconds * float64(time.Second)))

	srv := gateway.NewServer(cfg.Gateway, cfg.Environment, Version, store, deb, ovl, chatPlatform)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("[Serve] 👋 received %s, shutting down...", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
