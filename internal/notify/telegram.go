package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second
	DefaultMaxLen     = 3900
)

type TelegramConfig struct {
	Token  string
	ChatID string // numeric id or @channel
	// MaxRetries is the total number of attempts per message.
	MaxRetries int
	Backoff    time.Duration
	MaxLen     int
	// Endpoint overrides the Bot API endpoint, format "<base>/bot%s/%s".
	Endpoint   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Telegram sends HTML messages through the Bot API.
type Telegram struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	channel    string
	maxRetries int
	backoff    time.Duration
	maxLen     int
	logger     *zap.Logger
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram validates cfg and builds the notifier without contacting the API.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram: empty token")
	}
	chat := strings.TrimSpace(cfg.ChatID)
	if chat == "" {
		return nil, errors.New("telegram: empty chat id")
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = DefaultMaxLen
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	bot := &tgbotapi.BotAPI{
		Token:  cfg.Token,
		Client: cfg.HTTPClient,
		Buffer: 100,
	}
	bot.SetAPIEndpoint(cfg.Endpoint)

	t := &Telegram{
		bot:        bot,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		maxLen:     cfg.MaxLen,
		logger:     cfg.Logger,
	}
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		t.chatID = id
	} else if strings.HasPrefix(chat, "@") {
		t.channel = chat
	} else {
		return nil, fmt.Errorf("telegram: chat id %q is neither numeric nor @channel", chat)
	}
	return t, nil
}

// Send delivers text, hard-splitting it when longer than the configured limit.
func (t *Telegram) Send(ctx context.Context, text string) error {
	for i, part := range Split(text, t.maxLen) {
		if err := t.sendOne(ctx, part); err != nil {
			return fmt.Errorf("telegram: part %d: %w", i+1, err)
		}
	}
	return nil
}

func (t *Telegram) message(text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if t.channel != "" {
		msg = tgbotapi.NewMessageToChannel(t.channel, text)
	} else {
		msg = tgbotapi.NewMessage(t.chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

func (t *Telegram) sendOne(ctx context.Context, text string) error {
	msg := t.message(text)
	var err error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if _, err = t.bot.Send(msg); err == nil {
			return nil
		}
		wait, retry := t.retryAfter(err, attempt)
		if !retry || attempt == t.maxRetries {
			break
		}
		t.logger.Warn("telegram send failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

// retryAfter classifies err. API errors are retried on 429 and 5xx only;
// transport and decoding errors are always retried.
func (t *Telegram) retryAfter(err error, attempt int) (time.Duration, bool) {
	wait := t.backoff << (attempt - 1)

	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return wait, true
	}
	if apiErr.Code != http.StatusTooManyRequests && apiErr.Code < http.StatusInternalServerError {
		return 0, false
	}
	if ra := time.Duration(apiErr.RetryAfter) * time.Second; ra > wait {
		wait = ra
	}
	return wait, true
}
