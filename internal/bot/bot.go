// Package bot wires the Telegram long-polling loop to the reply handlers.
package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"gemini-bot/internal/logger"
)

// maxDownload caps files pulled from Telegram; the Bot API serves at most
// 20 MB anyway.
const maxDownload = 20 << 20

type Bot struct {
	Instance *telego.Bot
	handlers *Handlers
	guard    *UpdateGuard
	log      *logger.Logger
	http     *http.Client
	username string
}

func NewBot(token string, deps Deps, guard *UpdateGuard, log *logger.Logger) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}

	b := &Bot{
		Instance: tgBot,
		guard:    guard,
		log:      log,
		http:     &http.Client{Timeout: time.Minute},
	}
	b.handlers = NewHandlers(deps, b)
	return b, nil
}

// Fetch downloads a file through the Bot API file endpoint.
func (b *Bot) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.Instance.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.Instance.FileDownloadURL(file.FilePath), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownload))
}

func (b *Bot) send(ctx context.Context, log *logger.Logger, chatID int64) ReplyFunc {
	return func(r Reply) {
		msg := tu.Message(tu.ID(chatID), r.Text)
		if r.Markdown {
			msg = msg.WithParseMode(telego.ModeMarkdownV2)
		}
		if r.Keyboard != nil {
			msg = msg.WithReplyMarkup(r.Keyboard)
		}
		if _, err := b.Instance.SendMessage(ctx, msg); err != nil {
			log.Error("failed to send reply", "error", err)
		}
	}
}

type messageHandler func(ctx context.Context, req Request, msg *telego.Message, reply ReplyFunc)

// wrap drops redelivered updates and tags the rest with a request id.
func (b *Bot) wrap(name string, fn messageHandler) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		c := ctx.Context()
		msg := update.Message
		if msg == nil || !b.guard.First(c, update.UpdateID) {
			return nil
		}

		req := Request{ChatID: msg.Chat.ID}
		if msg.From != nil {
			req.FirstName = msg.From.FirstName
			req.Username = msg.From.Username
		}
		req.Log = b.log.With(
			"request_id", uuid.NewString(),
			"handler", name,
			"update_id", update.UpdateID,
			"chat_id", req.ChatID,
		)
		req.Log.Debug("handling update")

		fn(c, req, msg, b.send(c, req.Log, req.ChatID))
		return nil
	}
}

// commandArgs returns the text after the command word.
func commandArgs(text string) string {
	_, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(rest)
}

func hasContact(_ context.Context, update telego.Update) bool {
	return update.Message != nil && update.Message.Contact != nil
}

func hasPhoto(_ context.Context, update telego.Update) bool {
	return update.Message != nil && len(update.Message.Photo) > 0
}

func hasDocument(_ context.Context, update telego.Update) bool {
	return update.Message != nil && update.Message.Document != nil
}

// largestPhoto returns the file id of the biggest size Telegram offers.
func largestPhoto(sizes []telego.PhotoSize) string {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best.FileID
}

func (b *Bot) register(handler *th.BotHandler) {
	h := b.handlers

	handler.Handle(b.wrap("start", func(ctx context.Context, req Request, msg *telego.Message, reply ReplyFunc) {
		h.Start(ctx, req, commandArgs(msg.Text), reply)
	}), th.CommandEqual("start"))

	handler.Handle(b.wrap("websearch", func(ctx context.Context, req Request, msg *telego.Message, reply ReplyFunc) {
		h.WebSearch(ctx, req, commandArgs(msg.Text), reply)
	}), th.CommandEqual("websearch"))

	handler.Handle(b.wrap("myreferrals", func(ctx context.Context, req Request, _ *telego.Message, reply ReplyFunc) {
		h.MyReferrals(ctx, req, b.username, reply)
	}), th.CommandEqual("myreferrals"))

	handler.Handle(b.wrap("contact", func(ctx context.Context, req Request, msg *telego.Message, reply ReplyFunc) {
		h.Contact(ctx, req, msg.Contact.PhoneNumber, reply)
	}), hasContact)

	handler.Handle(b.wrap("photo", func(ctx context.Context, req Request, msg *telego.Message, reply ReplyFunc) {
		h.Photo(ctx, req, largestPhoto(msg.Photo), reply)
	}), hasPhoto)

	handler.Handle(b.wrap("document", func(ctx context.Context, req Request, msg *telego.Message, reply ReplyFunc) {
		doc := msg.Document
		h.Document(ctx, req, doc.FileID, doc.FileName, doc.MimeType, reply)
	}), hasDocument)

	handler.Handle(b.wrap("chat", func(ctx context.Context, req Request, msg *telego.Message, reply ReplyFunc) {
		h.Chat(ctx, req, msg.Text, reply)
	}), th.AnyMessageWithText(), th.Not(th.AnyCommand()))
}

// Start long-polls until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.Instance.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	b.username = me.Username

	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}
	b.register(handler)

	go func() {
		<-ctx.Done()
		handler.Stop()
	}()

	b.log.Info("bot started", "username", b.username)
	handler.Start()
	return nil
}
