package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/bot"
	"taskflow/internal/config"
	"taskflow/internal/handlers"
	"taskflow/internal/model"
	"taskflow/internal/repository"
	"taskflow/internal/routes"
	"taskflow/internal/service"
)

const (
	jobTimeout      = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the HTTP API and the reminder scheduler",
		Long: `Serve starts every configured surface:

  - the Telegram bot when TELEGRAM_TOKEN is set, with digests and overdue notices
  - the HTTP API on HTTP_ADDR unless it is set to an empty value`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	st.svc.OnChange(func(tasks []model.Task) {
		log.Printf("[info] task snapshot updated tasks=%d", len(tasks))
	})

	prefs, err := config.OpenPreferences(cfg.PreferencesPath)
	if err != nil {
		return fmt.Errorf("preferences: %w", err)
	}

	errCh := make(chan error, 2)

	if cfg.BotEnabled() {
		telegramBot, err := bot.New(cfg.TelegramToken, repository.NewChatRepository(st.db), st.svc, service.NewReminderService(), prefs)
		if err != nil {
			return fmt.Errorf("bot: %w", err)
		}

		scheduler, err := newScheduler(cfg, telegramBot)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()

		go func() {
			errCh <- telegramBot.Start(ctx)
		}()
	}

	if cfg.HTTPEnabled() {
		router := routes.NewRouter([]byte(cfg.JWTSecret),
			handlers.NewTaskHandler(st.svc),
			handlers.NewViewHandler(st.svc),
			handlers.NewPreferencesHandler(prefs),
		)
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("[info] http api listening on %s", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http: %w", err)
				return
			}
			errCh <- nil
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("http shutdown: %v", err)
			}
		}()
	}

	log.Println("TaskFlow started.")
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	log.Println("Shutdown complete.")
	return nil
}

// newScheduler registers the digest and the overdue check.
func newScheduler(cfg config.Config, telegramBot *bot.Bot) (*service.SchedulerService, error) {
	scheduler := service.NewSchedulerService(cfg.Location)

	digest := job("digest", telegramBot.SendDigests)
	if cfg.DigestTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, digest); err != nil {
			return nil, fmt.Errorf("schedule digest: %w", err)
		}
	} else if _, err := scheduler.ScheduleInterval(cfg.ReportInterval, digest); err != nil {
		return nil, fmt.Errorf("schedule digest: %w", err)
	}

	if _, err := scheduler.ScheduleInterval(cfg.OverdueInterval, job("overdue", telegramBot.AnnounceOverdue)); err != nil {
		return nil, fmt.Errorf("schedule overdue check: %w", err)
	}
	return scheduler, nil
}

func job(name string, fn func(context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("%s: %v", name, err)
		}
	}
}
