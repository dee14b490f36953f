package telegramadapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"patientsurvey/pkg/bot"
	"patientsurvey/pkg/ports/notifyport"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Package telegramadapter implements notifyport.Sender on top of the Telegram client.

// Logger defines the minimal logging interface used by the adapter.
type Logger interface {
	Printf(format string, args ...any)
}

type telegramClient interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
}

// Adapter wraps a Telegram client and satisfies notifyport.Sender.
type Adapter struct {
	client telegramClient
	logger Logger
}

var _ telegramClient = (*bot.Client)(nil)
var _ notifyport.Sender = (*Adapter)(nil)

// New constructs a Telegram adapter with the provided bot client and logger.
func New(client telegramClient, logger Logger) (*Adapter, error) {
	if client == nil {
		return nil, fmt.Errorf("telegramadapter: client is nil")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{
		client: client,
		logger: logger,
	}, nil
}

// SendMessage dispatches a Telegram message and returns its receipt.
func (a *Adapter) SendMessage(ctx context.Context, chatID int64, text string) (notifyport.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return notifyport.Receipt{}, wrapContextError("send_message", err)
	}
	if strings.TrimSpace(text) == "" {
		return notifyport.Receipt{}, notifyport.NewNotifyError("send_message", notifyport.CodeBadPayload, errors.New("empty text"))
	}
	msg, err := a.client.SendMessage(chatID, text)
	if err != nil {
		return notifyport.Receipt{}, a.wrapAndLogError("send_message", chatID, err)
	}
	r := toReceipt(msg, chatID)
	a.log("send_message", map[string]any{"chat_id": r.ChatID, "message_id": r.MessageID})
	return r, nil
}

func (a *Adapter) wrapAndLogError(op string, chatID int64, err error) error {
	wrapped := wrapTelegramError(op, err)
	a.log(op, map[string]any{
		"chat_id": chatID,
		"code":    getNotifyErrorCode(wrapped),
		"error":   err.Error(),
	})
	return wrapped
}

func (a *Adapter) log(op string, attrs map[string]any) {
	if a.logger == nil {
		return
	}
	a.logger.Printf("notifyport op=%s attrs=%v", op, attrs)
}

func toReceipt(msg tgbotapi.Message, fallbackChatID int64) notifyport.Receipt {
	chatID := fallbackChatID
	if msg.Chat != nil {
		chatID = msg.Chat.ID
	}
	return notifyport.Receipt{
		ChatID:    chatID,
		MessageID: msg.MessageID,
	}
}

func wrapContextError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return &notifyport.NotifyError{Op: op, Code: notifyport.CodeCanceled, Wrapped: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &notifyport.NotifyError{Op: op, Code: notifyport.CodeDeadline, Wrapped: err}
	}
	return &notifyport.NotifyError{Op: op, Code: notifyport.CodeContextFailure, Wrapped: err}
}

func wrapTelegramError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return wrapContextError(op, err)
	}
	code, retry := classifyTelegramError(err)
	return &notifyport.NotifyError{
		Op:         op,
		Code:       code,
		RetryAfter: retry,
		Wrapped:    err,
	}
}

var retryAfterRegex = regexp.MustCompile(`(?i)retry after (\d+)`)

func classifyTelegramError(err error) (string, time.Duration) {
	if err == nil {
		return notifyport.CodeUnknown, 0
	}
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.RetryAfter > 0 {
		return notifyport.CodeRateLimited, time.Duration(tgErr.RetryAfter) * time.Second
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests"):
		return notifyport.CodeRateLimited, extractRetryAfter(err.Error())
	case strings.Contains(msg, "chat not found"):
		return notifyport.CodeChatNotFound, 0
	case strings.Contains(msg, "bad request"):
		return notifyport.CodeBadRequest, 0
	case strings.Contains(msg, "forbidden"):
		return notifyport.CodeForbidden, 0
	case strings.Contains(msg, "unauthorized"):
		return notifyport.CodeUnauthorized, 0
	default:
		return notifyport.CodeUnknown, 0
	}
}

func extractRetryAfter(msg string) time.Duration {
	matches := retryAfterRegex.FindStringSubmatch(msg)
	if len(matches) != 2 {
		return 0
	}
	seconds, err := time.ParseDuration(matches[1] + "s")
	if err != nil {
		return 0
	}
	return seconds
}

func getNotifyErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var ne *notifyport.NotifyError
	if errors.As(err, &ne) {
		return ne.Code
	}
	return ""
}
