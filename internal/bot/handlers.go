package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"gemini-bot/internal/apperr"
	"gemini-bot/internal/gemini"
	"gemini-bot/internal/history"
	"gemini-bot/internal/logger"
	"gemini-bot/internal/models"
	"gemini-bot/internal/referral"
	"gemini-bot/internal/search"
)

const (
	noAnalysis  = "📄 File received. No analysis available."
	photoMime   = "image"
	failureText = "❌ *Something went wrong\\. Please try again later\\.*"
)

var followUps = []string{
	"Would you like to know more details? 🤔",
	"That’s interesting! Should I provide examples? 📖",
	"Let me know if you need further insights! 😊",
	"Want a fun fact about this topic? 🤩",
	"I can simplify this if you’d like! 🧐",
}

// Assistant is the language model as the handlers see it.
type Assistant interface {
	Generate(ctx context.Context, prompt string) (string, error)
	DescribeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string) (*search.Summary, error)
}

type PhoneBook interface {
	SetPhoneNumber(ctx context.Context, chatID int64, phone string) error
}

// FileFetcher downloads a Telegram file by id.
type FileFetcher interface {
	Fetch(ctx context.Context, fileID string) ([]byte, error)
}

// Reply is one outgoing message. MarkdownV2 text must already be escaped.
type Reply struct {
	Text     string
	Markdown bool
	Keyboard telego.ReplyMarkup
}

type ReplyFunc func(Reply)

// Request carries the sender of one update.
type Request struct {
	ChatID    int64
	FirstName string
	Username  string
	Log       *logger.Logger
}

type Deps struct {
	Referrals *referral.Engine
	Phones    PhoneBook
	History   *history.Recorder
	AI        Assistant
	Search    Searcher
}

// Handlers holds the reply logic for every update kind, independent of the
// Telegram transport.
type Handlers struct {
	Deps
	files FileFetcher
	pick  func(n int) int
}

func NewHandlers(deps Deps, files FileFetcher) *Handlers {
	return &Handlers{Deps: deps, files: files, pick: rand.IntN}
}

func markdown(text string) Reply {
	return Reply{Text: text, Markdown: true}
}

func chunked(reply ReplyFunc, text string) {
	for _, part := range Chunk(text, MaxChunk) {
		reply(markdown(part))
	}
}

func welcomeText(firstName string, chatID int64) string {
	return fmt.Sprintf(`👋 *Hello %s\!*
🤖 Welcome to *AI Bot*\! Here’s what you can do:
🔹 *Chat with AI* – Send any message and get smart responses
🖼️ *Analyze Images* – Upload a picture for AI insights
🌍 *Web Search* – Use `+"`/websearch query`"+` for instant results
🎁 *Earn Rewards* – Refer friends with `+"`/start %s`"+`

📱 *Please share your phone number to continue:*
\(Use the button below ⬇️\)`, EscapeMarkdownV2(firstName), models.ReferralCodeFor(chatID))
}

func shareContactKeyboard() *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(
		tu.KeyboardRow(
			tu.KeyboardButton("📱 Share Phone Number").WithRequestContact(),
		),
	).WithResizeKeyboard().WithOneTimeKeyboard()
}

func (h *Handlers) Start(ctx context.Context, req Request, code string, reply ReplyFunc) {
	res, err := h.Referrals.RegisterWithReferral(ctx, req.ChatID, req.FirstName, req.Username, code)
	if err != nil {
		req.Log.Error("registration failed", "error", err)
		reply(markdown(failureText))
		return
	}
	if !res.IsNew {
		reply(markdown("🔹 *Welcome back\\!* You are already registered\\. 😊"))
		return
	}
	req.Log.Info("user registered", "referrer", res.Referrer)
	reply(Reply{
		Text:     welcomeText(req.FirstName, req.ChatID),
		Markdown: true,
		Keyboard: shareContactKeyboard(),
	})
}

func (h *Handlers) Contact(ctx context.Context, req Request, phone string, reply ReplyFunc) {
	if strings.TrimSpace(phone) == "" {
		reply(markdown("❌ *Please use the button to share your phone number\\.*"))
		return
	}
	err := h.Phones.SetPhoneNumber(ctx, req.ChatID, phone)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		reply(markdown("❌ *Please register with /start first\\.*"))
	case err != nil:
		req.Log.Error("saving phone number failed", "error", err)
		reply(markdown(failureText))
	default:
		reply(markdown("✅ *Phone number saved successfully\\!* 🎉"))
	}
}

// Chat answers a free-text message. A model failure is stored and shown in
// its "Error: ..." form.
func (h *Handlers) Chat(ctx context.Context, req Request, text string, reply ReplyFunc) {
	response, err := h.AI.Generate(ctx, text)
	if err != nil {
		req.Log.Warn("model call failed", "error", err)
		response = apperr.ReplyText(err)
	}
	if err := h.History.RecordChat(ctx, req.ChatID, text, response); err != nil {
		req.Log.Error("recording chat failed", "error", err)
	}

	chunked(reply, "💡 *AI Response:*\n"+EscapeMarkdownV2(response))
	reply(markdown("🔍 " + EscapeMarkdownV2(followUps[h.pick(len(followUps))])))
}

func (h *Handlers) describe(ctx context.Context, req Request, fileID, mimeType string) (string, error) {
	data, err := h.files.Fetch(ctx, fileID)
	if err != nil {
		return "", err
	}
	description, err := h.AI.DescribeImage(ctx, data, mimeType, gemini.DefaultImagePrompt)
	if err != nil {
		req.Log.Warn("image description failed", "file_id", fileID, "error", err)
		return apperr.ReplyText(err), nil
	}
	return description, nil
}

// Photo describes the largest size of a photo. fileID must point at it.
func (h *Handlers) Photo(ctx context.Context, req Request, fileID string, reply ReplyFunc) {
	description, err := h.describe(ctx, req, fileID, "")
	if err != nil {
		req.Log.Error("photo download failed", "file_id", fileID, "error", err)
		reply(markdown(fmt.Sprintf("❌ *Error processing image:* `%s`", EscapeMarkdownV2(err.Error()))))
		return
	}
	if err := h.History.RecordFile(ctx, req.ChatID, fileID, fileID+".jpg", photoMime, description); err != nil {
		req.Log.Error("recording file failed", "error", err)
	}
	chunked(reply, EscapeMarkdownV2(description))
}

func (h *Handlers) Document(ctx context.Context, req Request, fileID, fileName, mimeType string, reply ReplyFunc) {
	description := noAnalysis
	if strings.HasPrefix(mimeType, "image/") {
		d, err := h.describe(ctx, req, fileID, mimeType)
		if err != nil {
			req.Log.Error("document download failed", "file_id", fileID, "error", err)
			reply(markdown(fmt.Sprintf("❌ *Error processing file:* `%s`", EscapeMarkdownV2(err.Error()))))
			return
		}
		description = d
	}
	if err := h.History.RecordFile(ctx, req.ChatID, fileID, fileName, mimeType, description); err != nil {
		req.Log.Error("recording file failed", "error", err)
	}
	chunked(reply, "📂 *File Received:*\n"+EscapeMarkdownV2(description))
}

func (h *Handlers) WebSearch(ctx context.Context, req Request, query string, reply ReplyFunc) {
	query = strings.TrimSpace(query)
	if query == "" {
		reply(markdown("❌ *Please provide a search query\\.* Example: `/websearch AI news`"))
		return
	}
	reply(markdown("🔍 *Searching\\.\\.\\. Please wait\\.*"))

	summary, err := h.Search.Search(ctx, query)
	if err != nil {
		req.Log.Warn("web search failed", "query", query, "error", err)
		reply(markdown(fmt.Sprintf("❌ *Error processing search:* `%s`", EscapeMarkdownV2(apperr.ReplyText(err)))))
		return
	}
	chunked(reply, EscapeMarkdownV2(summary.Format()))
}

func (h *Handlers) MyReferrals(ctx context.Context, req Request, botUsername string, reply ReplyFunc) {
	stats, err := h.Referrals.GetReferralStats(ctx, req.ChatID)
	if errors.Is(err, apperr.ErrNotFound) {
		reply(markdown("❌ *You're not registered yet\\.*"))
		return
	}
	if err != nil {
		req.Log.Error("loading referral stats failed", "error", err)
		reply(markdown(failureText))
		return
	}

	referredBy := "None"
	if stats.ReferredBy != nil {
		referredBy = strconv.FormatInt(*stats.ReferredBy, 10)
	}
	text := fmt.Sprintf("🎁 *Referral Stats*\n\n🔹 *Your Referral Code:* `%s`\n🔹 *Referred By:* %s\n🔹 *People Referred:* %d",
		stats.Code, EscapeMarkdownV2(referredBy), stats.ReferralCount)
	if botUsername != "" {
		text += "\n🔹 *Your Link:* " + EscapeMarkdownV2(referral.ReferralLink(botUsername, req.ChatID))
	}
	reply(markdown(text))
}
