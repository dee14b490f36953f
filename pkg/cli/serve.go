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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"patientsurvey/pkg/auth"
	"patientsurvey/pkg/bot"
	"patientsurvey/pkg/bot/telegramadapter"
	"patientsurvey/pkg/config"
	"patientsurvey/pkg/identity"
	"patientsurvey/pkg/notify"
	"patientsurvey/pkg/state"
	"patientsurvey/pkg/storage"
	"patientsurvey/pkg/storage/gormstore"
	"patientsurvey/pkg/storage/memstore"
	"patientsurvey/pkg/web"
)

const (
	shutdownTimeout   = 10 * time.Second
	sweepInterval     = time.Minute
	mockStoreLatency  = 800 * time.Millisecond
	readHeaderTimeout = 10 * time.Second
	identityCacheSize = identity.DefaultCacheSize
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  "Start the survey API and the admin listing. Without DATABASE_URL responses are kept in memory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")

	return cmd
}

func runServe(port string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	if port != "" {
		rt.Port = port
	}

	def, err := config.LoadSurvey(rt.SurveyFile)
	if err != nil {
		return err
	}

	store, closeFn, err := openStore(rt)
	if err != nil {
		return err
	}
	defer closeStore(closeFn)

	authService := auth.NewService(rt.Admin)
	if !authService.Configured() {
		log.Println("Admin login is not configured; ADMIN_EMAIL, ADMIN_PASSWORD_HASH and JWT_SECRET are required.")
	}

	sessions := state.NewStore()
	deps := web.Deps{
		Survey:         def,
		Store:          store,
		Extractor:      identity.NewExtractor(identityCacheSize),
		Sessions:       sessions,
		Auth:           authService,
		SubmitTimeout:  rt.SubmitTimeout,
		AllowedOrigins: rt.AllowedOrigins,
		SecureCookies:  gin.Mode() == gin.ReleaseMode,
	}
	if notifier := newNotifier(rt.Telegram, def); notifier != nil {
		deps.Notifier = notifier
	}

	router, err := web.NewRouter(deps)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", rt.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			log.Println("Shutdown signal received...")
			cancel()
		case <-ctx.Done():
		}
	}()

	go sweepSessions(ctx, sessions, rt.SessionIdle)

	errs := make(chan error, 1)
	go func() {
		log.Printf("Server running on port %s", rt.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Stopping HTTP server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Println("Server stopped.")
	return nil
}

// openStore connects to PostgreSQL when DATABASE_URL is set and falls back to
// the in-memory mock store otherwise.
func openStore(rt *config.Runtime) (storage.Store, func() error, error) {
	if rt.DatabaseURL == "" {
		log.Println("DATABASE_URL is not set; responses are kept in memory only.")
		return memstore.New(mockStoreLatency), func() error { return nil }, nil
	}

	store, err := gormstore.Open(rt.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		closeStore(store.Close)
		return nil, nil, err
	}
	return store, store.Close, nil
}

// newNotifier builds the Telegram notifier, or returns nil when notifications
// are disabled or the bot cannot be reached.
func newNotifier(cfg config.TelegramConfig, def *config.SurveyDefinition) *notify.Notifier {
	if !cfg.Enabled() {
		log.Println("Telegram notifications disabled.")
		return nil
	}

	botClient, err := bot.NewClient(cfg.BotToken)
	if err != nil {
		log.Printf("Failed to initialize bot client, notifications disabled: %v", err)
		return nil
	}
	log.Printf("Authorized on account %s", botClient.Self.UserName)

	adapter, err := telegramadapter.New(botClient, log.Default())
	if err != nil {
		log.Printf("Failed to create telegram adapter, notifications disabled: %v", err)
		return nil
	}

	notifier, err := notify.New(adapter, cfg.NotifyChatID, def)
	if err != nil {
		log.Printf("Failed to create notifier, notifications disabled: %v", err)
		return nil
	}
	return notifier
}

func sweepSessions(ctx context.Context, sessions *state.Store, maxIdle time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sessions.Sweep(maxIdle)
		case <-ctx.Done():
			return
		}
	}
}
