package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bulatfbi/coffee-bot/internal/dialog"
)

// Bot is the subset of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Conversation handles user events; dialog.Machine implements it.
type Conversation interface {
	Start(ctx context.Context, userID int64)
	Text(ctx context.Context, userID int64, text string)
	Choose(ctx context.Context, userID int64, c dialog.Choice)
	Cancel(ctx context.Context, userID int64)
	Status(ctx context.Context, userID int64)
	SetRotation(ctx context.Context, userID int64, enabled bool)
	Help(userID int64)
}

// Router wires Telegram updates to the conversation and sends replies.
type Router struct {
	bot  Bot
	log  *zap.Logger
	conv Conversation
}

// NewRouter creates a router. The conversation is attached later with Attach
// because it needs the router as its Replier.
func NewRouter(bot Bot, log *zap.Logger) *Router {
	return &Router{bot: bot, log: log}
}

// Attach sets the conversation handler.
func (r *Router) Attach(conv Conversation) {
	r.conv = conv
}

// HandleUpdate routes a single update to the conversation.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// Text messages
	if upd.Message != nil {
		msg := upd.Message
		userID := senderID(msg.From, msg.Chat)
		text := strings.TrimSpace(msg.Text)

		if msg.IsCommand() {
			r.handleCommand(ctx, userID, msg.Command())
			return
		}
		r.conv.Text(ctx, userID, text)
		return
	}

	// Callback queries (inline buttons)
	if upd.CallbackQuery != nil {
		cb := upd.CallbackQuery
		if err := r.answerCallback(cb.ID); err != nil {
			r.log.Warn("answer callback failed", zap.Error(err))
		}
		var chat *tgbotapi.Chat
		if cb.Message != nil {
			chat = cb.Message.Chat
		}
		userID := senderID(cb.From, chat)
		c, ok := parseChoice(cb.Data)
		if !ok {
			r.log.Debug("unknown callback", zap.String("data", cb.Data))
			return
		}
		r.conv.Choose(ctx, userID, c)
	}
}

func (r *Router) handleCommand(ctx context.Context, userID int64, cmd string) {
	switch cmd {
	case "start":
		r.conv.Start(ctx, userID)
	case "cancel":
		r.conv.Cancel(ctx, userID)
	case "status":
		r.conv.Status(ctx, userID)
	case "help":
		r.conv.Help(userID)
	// Hidden operator commands.
	case "rotation_on":
		r.conv.SetRotation(ctx, userID, true)
	case "rotation_off":
		r.conv.SetRotation(ctx, userID, false)
	default:
		// Unknown commands are ignored.
	}
}

// senderID prefers the Telegram user id; private chats share it with the chat id.
func senderID(from *tgbotapi.User, chat *tgbotapi.Chat) int64 {
	if from != nil {
		return from.ID
	}
	if chat != nil {
		return chat.ID
	}
	return 0
}

func (r *Router) answerCallback(id string) error {
	_, err := r.bot.Request(tgbotapi.NewCallback(id, ""))
	return err
}

// Reply sends text with the keyboard for menu.
// This makes Router satisfy dialog.Replier.
func (r *Router) Reply(userID int64, text string, menu dialog.Menu) error {
	msg := tgbotapi.NewMessage(userID, text)
	if kb, ok := menuKeyboard(menu); ok {
		msg.ReplyMarkup = kb
	}
	_, err := r.bot.Send(msg)
	return err
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy rotation.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
