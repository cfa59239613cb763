// Package referral registers users and tracks who invited whom.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gemini-bot/internal/apperr"
	"gemini-bot/internal/logger"
	"gemini-bot/internal/models"
	"gemini-bot/internal/storage"
)

// codePrefix is accepted in deep-link payloads ("?start=ref_42").
const codePrefix = "ref_"

type Engine struct {
	store storage.Store
	log   *logger.Logger
}

func NewEngine(store storage.Store, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{store: store, log: log}
}

// NormalizeCode trims whitespace and the optional "ref_" prefix.
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	return strings.TrimPrefix(code, codePrefix)
}

// RegisterWithReferral registers the user and, for a new user with a code
// that resolves to someone else, records the referral. Existing users keep
// the referrer they got at first registration. Unknown codes and
// self-referrals are dropped without failing the registration.
func (e *Engine) RegisterWithReferral(ctx context.Context, chatID int64, firstName, username, code string) (models.RegistrationResult, error) {
	existing, err := e.store.GetUser(ctx, chatID)
	switch {
	case err == nil:
		return models.RegistrationResult{IsNew: false, Referrer: existing.ReferredBy}, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return models.RegistrationResult{}, err
	}

	user := models.NewUser(chatID, firstName, username)
	if referrer := e.resolveReferrer(ctx, chatID, code); referrer != nil {
		user.ReferredBy = &referrer.ChatID
	}

	created, err := e.store.CreateUser(ctx, user)
	if err != nil {
		return models.RegistrationResult{}, err
	}
	if !created {
		// Lost a race against a concurrent registration of the same id.
		winner, err := e.store.GetUser(ctx, chatID)
		if err != nil {
			return models.RegistrationResult{}, err
		}
		return models.RegistrationResult{IsNew: false, Referrer: winner.ReferredBy}, nil
	}

	if user.ReferredBy != nil {
		e.log.Info("user invited", "chat_id", chatID, "referrer", *user.ReferredBy)
	}
	return models.RegistrationResult{IsNew: true, Referrer: user.ReferredBy}, nil
}

func (e *Engine) resolveReferrer(ctx context.Context, chatID int64, code string) *models.User {
	code = NormalizeCode(code)
	if code == "" {
		return nil
	}
	if code == models.ReferralCodeFor(chatID) {
		e.log.Info("self referral ignored", "chat_id", chatID)
		return nil
	}
	referrer, err := e.store.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			e.log.Info("referral code not found", "chat_id", chatID, "code", code)
		} else {
			e.log.Warn("referral lookup failed", "chat_id", chatID, "code", code, "error", err)
		}
		return nil
	}
	if referrer.ChatID == chatID {
		return nil
	}
	return referrer
}

// GetReferralStats returns apperr.ErrNotFound for unregistered users.
func (e *Engine) GetReferralStats(ctx context.Context, chatID int64) (models.ReferralStats, error) {
	u, err := e.store.GetUser(ctx, chatID)
	if err != nil {
		return models.ReferralStats{}, err
	}
	return models.ReferralStats{
		Code:          u.ReferralCode,
		ReferredBy:    u.ReferredBy,
		ReferralCount: u.ReferralCount,
	}, nil
}

// ReferralLink builds the t.me deep link that carries the user's code.
func ReferralLink(botUsername string, chatID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", botUsername, models.ReferralCodeFor(chatID))
}
