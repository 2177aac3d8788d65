// Package telegram pages teams through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"time"

	"github.com/medops/opsdesk/internal/domain"
	"github.com/medops/opsdesk/internal/paging"
	"golang.org/x/time/rate"
)

const (
	defaultAPIURL     = "https://api.telegram.org/bot%s/sendMessage"
	defaultRateLimit  = 25.0
	defaultTimeout    = 10 * time.Second
	defaultRetryAfter = 1 * time.Second
)

// Config holds telegram sender configuration.
type Config struct {
	Enabled  bool
	BotToken string
	// RateLimit is the maximum number of messages per second.
	RateLimit float64
}

// Sender implements paging.Sender using sendMessage.
type Sender struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	apiURL     string
}

// NewSender creates a new telegram sender.
// Returns error if enabled but required config is missing.
func NewSender(config Config) (*Sender, error) {
	if config.Enabled && config.BotToken == "" {
		return nil, errors.New("telegram sender: bot token is required when enabled")
	}

	limit := config.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}

	slog.Info("telegram sender configured", "enabled", config.Enabled, "rate_limit", limit)

	return &Sender{
		config:     config,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		apiURL:     defaultAPIURL,
	}, nil
}

// Type returns the channel type.
func (s *Sender) Type() domain.ChannelType {
	return domain.ChannelTypeTelegram
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// Send sends msg to the chat ID in msg.To.
func (s *Sender) Send(ctx context.Context, msg paging.Message) error {
	if !s.config.Enabled {
		slog.Debug("telegram sender disabled, skipping", "to", msg.To)
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	text := msg.Body
	if msg.Subject != "" {
		text = fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(msg.Subject), msg.Body)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                msg.To,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf(s.apiURL, s.config.BotToken), bytes.NewReader(body))
	if err != nil {
		return &PermanentError{Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &RetryableError{Message: fmt.Sprintf("send request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	var tgResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&tgResp); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return &RetryableError{Code: resp.StatusCode, Message: "unreadable response"}
		}
		return &PermanentError{Code: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
	}

	return handleResponse(resp.StatusCode, tgResp, msg.To)
}

func handleResponse(status int, tgResp telegramResponse, chatID string) error {
	if status == http.StatusOK && tgResp.OK {
		slog.Debug("telegram page sent", "chat_id", chatID)
		return nil
	}

	code := tgResp.ErrorCode
	if code == 0 {
		code = status
	}

	switch {
	case code == http.StatusTooManyRequests:
		retryAfter := defaultRetryAfter
		if tgResp.Parameters != nil && tgResp.Parameters.RetryAfter > 0 {
			retryAfter = time.Duration(tgResp.Parameters.RetryAfter) * time.Second
		}
		return &RateLimitError{RetryAfter: retryAfter, Message: tgResp.Description}
	case code == http.StatusUnauthorized:
		return &PermanentError{Code: code, Message: "invalid bot token"}
	case code >= http.StatusInternalServerError:
		return &RetryableError{Code: code, Message: tgResp.Description}
	default:
		return &PermanentError{Code: code, Message: tgResp.Description}
	}
}

// RateLimitError is returned when Telegram asks the client to slow down.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("telegram rate limited, retry after %s: %s", e.RetryAfter, e.Message)
}

// IsRetryable returns true.
func (e *RateLimitError) IsRetryable() bool { return true }

// PermanentError indicates an error that should not be retried.
type PermanentError struct {
	Code    int
	Message string
}

func (e *PermanentError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("telegram error: %s", e.Message)
}

// IsRetryable returns false.
func (e *PermanentError) IsRetryable() bool { return false }

// RetryableError indicates a temporary error.
type RetryableError struct {
	Code    int
	Message string
}

func (e *RetryableError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("telegram error: %s", e.Message)
}

// IsRetryable returns true.
func (e *RetryableError) IsRetryable() bool { return true }

// IsRetryable reports whether err is a telegram error marked retryable.
// Unknown errors are not.
func IsRetryable(err error) bool {
	var r interface{ IsRetryable() bool }
	if err != nil && errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// GetRetryAfter returns the wait requested by a RateLimitError, or zero.
func GetRetryAfter(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}
