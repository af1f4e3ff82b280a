package telegram

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/pkg/config"
	"github.com/wonny/tradebot/pkg/logger"
	"github.com/wonny/tradebot/pkg/redis"
)

// maxMessageLength is the Bot API limit for sendMessage text
const maxMessageLength = 4096

// Client delivers reports through the Telegram Bot API
type Client struct {
	client  *resty.Client
	limiter *redis.RateLimiter
	logger  *logger.Logger
	chatID  string
}

var _ contracts.Notifier = (*Client)(nil)

// apiResponse is the envelope of every Bot API reply
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewClient creates a Telegram notifier. limiter may be nil.
func NewClient(cfg config.TelegramConfig, limiter *redis.RateLimiter, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(fmt.Sprintf("%s/bot%s", cfg.BaseURL, cfg.BotToken))
	client.SetTimeout(30 * time.Second)

	return &Client{
		client:  client,
		limiter: limiter,
		logger:  log.WithComponent("telegram"),
		chatID:  cfg.ChatID,
	}
}

// SendMessage posts text to the configured chat. Long text is truncated.
func (c *Client) SendMessage(ctx context.Context, text string, silent bool) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	if runes := []rune(text); len(runes) > maxMessageLength {
		text = string(runes[:maxMessageLength-1]) + "…"
	}

	var result apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id":              c.chatID,
			"text":                 text,
			"disable_notification": strconv.FormatBool(silent),
		}).
		SetResult(&result).
		SetError(&result).
		Post("/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}

	return c.check("sendMessage", resp, result)
}

// SendFile uploads r as a document with an optional caption
func (c *Client) SendFile(ctx context.Context, r io.Reader, name, caption string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var result apiResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": c.chatID,
			"caption": caption,
		}).
		SetFileReader("document", name, r).
		SetResult(&result).
		SetError(&result).
		Post("/sendDocument")
	if err != nil {
		return fmt.Errorf("telegram sendDocument: %w", err)
	}

	return c.check("sendDocument", resp, result)
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx, redis.TelegramRateLimit); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}
	return nil
}

func (c *Client) check(method string, resp *resty.Response, result apiResponse) error {
	if resp.IsError() || !result.OK {
		c.logger.WithFields(map[string]interface{}{
			"method":      method,
			"status_code": resp.StatusCode(),
			"description": result.Description,
		}).Warn("Telegram API call failed")
		return fmt.Errorf("telegram %s: status %d: %s", method, resp.StatusCode(), result.Description)
	}
	return nil
}
