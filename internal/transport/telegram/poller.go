package telegram

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Outgoing reply to an incoming message. Photo takes precedence over Text, which then becomes the caption.
type Outgoing struct {
	Text  string
	Photo []byte
}

// Handler processes one incoming message.
type Handler func(ctx context.Context, msg Message) Outgoing

// Poller receives updates by long polling and answers each message in order.
type Poller struct {
	client  *Client
	handler Handler
	logger  *zap.Logger
}

// NewPoller creates a poller and routes every update of client to handler.
func NewPoller(client *Client, handler Handler, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Poller{client: client, handler: handler, logger: logger}
	client.api.RegisterHandlerMatchFunc(func(*models.Update) bool { return true }, p.onUpdate)
	return p
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("telegram polling started")
	p.client.api.Start(ctx)
	p.logger.Info("telegram polling stopped")
	return nil
}

func (p *Poller) onUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	msg := Message{ChatID: update.Message.Chat.ID, Text: text}
	if from := update.Message.From; from != nil {
		msg.SenderID = from.ID
		msg.Username = from.Username
	}
	p.logger.Info("received message",
		zap.Int64("chat_id", msg.ChatID),
		zap.Int64("sender_id", msg.SenderID),
		zap.String("text", msg.Text))

	reply := p.handler(ctx, msg)
	if err := p.send(ctx, msg.ChatID, reply); err != nil {
		p.logger.Error("send reply", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

func (p *Poller) send(ctx context.Context, chatID int64, reply Outgoing) error {
	if len(reply.Photo) > 0 {
		return p.client.SendPhoto(ctx, chatID, reply.Photo, reply.Text)
	}
	if reply.Text == "" {
		return nil
	}
	return p.client.SendMessage(ctx, chatID, reply.Text)
}
