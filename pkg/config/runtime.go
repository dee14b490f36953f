package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Runtime holds the environment-driven settings of the service.
type Runtime struct {
	Port           string
	AllowedOrigins []string
	DatabaseURL    string
	SurveyFile     string
	SubmitTimeout  time.Duration
	SessionIdle    time.Duration

	Admin    AdminConfig
	Telegram TelegramConfig
}

type AdminConfig struct {
	Email        string
	PasswordHash string
	JWTSecret    string
	SessionTTL   time.Duration
}

// Configured reports whether admin login can succeed at all.
func (a AdminConfig) Configured() bool {
	return a.Email != "" && a.PasswordHash != "" && a.JWTSecret != ""
}

type TelegramConfig struct {
	BotToken     string
	NotifyChatID int64
}

// Enabled reports whether submission notifications should be sent.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.NotifyChatID != 0
}

// LoadDotEnv loads variables from the given files when they exist.
// Variables already present in the environment are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file '%s': %w", p, err)
		}
		log.Printf("Loaded environment from %s", p)
	}
	return nil
}

// LoadRuntime reads the runtime configuration from environment variables.
func LoadRuntime() (*Runtime, error) {
	submitTimeout, err := time.ParseDuration(getEnv("SUBMIT_TIMEOUT", "15s"))
	if err != nil || submitTimeout <= 0 {
		return nil, fmt.Errorf("invalid SUBMIT_TIMEOUT: %q", os.Getenv("SUBMIT_TIMEOUT"))
	}

	sessionIdle, err := time.ParseDuration(getEnv("SURVEY_SESSION_IDLE", "2h"))
	if err != nil || sessionIdle <= 0 {
		return nil, fmt.Errorf("invalid SURVEY_SESSION_IDLE: %q", os.Getenv("SURVEY_SESSION_IDLE"))
	}

	ttlHours, err := strconv.Atoi(getEnv("SESSION_TTL_HOURS", "12"))
	if err != nil || ttlHours <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL_HOURS: %q", os.Getenv("SESSION_TTL_HOURS"))
	}

	var chatID int64
	if raw := strings.TrimSpace(os.Getenv("NOTIFY_CHAT_ID")); raw != "" {
		chatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || chatID == 0 {
			return nil, fmt.Errorf("invalid NOTIFY_CHAT_ID: %q", raw)
		}
	}

	return &Runtime{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: parseList("ALLOWED_ORIGINS", nil),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SurveyFile:     strings.TrimSpace(os.Getenv("SURVEY_CONFIG")),
		SubmitTimeout:  submitTimeout,
		SessionIdle:    sessionIdle,
		Admin: AdminConfig{
			Email:        strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
			PasswordHash: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
			JWTSecret:    os.Getenv("JWT_SECRET"),
			SessionTTL:   time.Duration(ttlHours) * time.Hour,
		},
		Telegram: TelegramConfig{
			BotToken:     strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
			NotifyChatID: chatID,
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
