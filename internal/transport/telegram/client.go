// Package telegram connects the bot to the Telegram Bot API: long polling, text and photo replies.
package telegram

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	defaultPollTimeout = 30 * time.Second
	// telegram rejects longer messages
	maxMessageLength = 4096
)

// Message incoming text message.
type Message struct {
	ChatID   int64
	SenderID int64
	Username string
	Text     string
}

// Client sends messages and photos through the Bot API.
type Client struct {
	api    *bot.Bot
	token  string
	logger *zap.Logger
}

// NewClient creates a client. Empty serverURL selects the public API, non-positive pollTimeout selects 30s.
func NewClient(token, serverURL string, httpClient *http.Client, pollTimeout time.Duration, logger *zap.Logger) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{token: token, logger: logger}

	opts := []bot.Option{
		bot.WithSkipGetMe(),
		// one update at a time, replies keep command order
		bot.WithNotAsyncHandlers(),
		bot.WithHTTPClient(pollTimeout, httpClient),
		bot.WithErrorsHandler(func(err error) {
			c.logger.Warn("telegram api error", zap.Error(c.redact(err)))
		}),
	}
	if serverURL != "" {
		opts = append(opts, bot.WithServerURL(serverURL))
	}

	api, err := bot.New(token, opts...)
	if err != nil {
		return nil, errors.Wrap(c.redact(err), "create telegram bot")
	}
	c.api = api

	return c, nil
}

// SendMessage sends text to chatID, splitting it when it exceeds the API limit.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitMessage(text, maxMessageLength) {
		if _, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   chunk,
		}); err != nil {
			return errors.Wrap(c.redact(err), "sendMessage")
		}
	}
	return nil
}

// SendPhoto uploads a PNG image with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photo []byte, caption string) error {
	_, err := c.api.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "chart.png", Data: bytes.NewReader(photo)},
		Caption: caption,
	})
	if err != nil {
		return errors.Wrap(c.redact(err), "sendPhoto")
	}
	return nil
}

// redact drops the token from transport errors, request URLs carry it.
func (c *Client) redact(err error) error {
	if err == nil || c.token == "" || !strings.Contains(err.Error(), c.token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), c.token, "<token>"))
}

// splitMessage cuts text into chunks of at most limit bytes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			// do not split a multi-byte rune
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
		if len(text) > 0 && text[0] == '\n' {
			text = text[1:]
		}
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
