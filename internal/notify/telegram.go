// Package notify pushes out-of-band completion messages to caregivers.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dosewise/dosewise/internal/domain"
	"github.com/dosewise/dosewise/internal/logger"
)

// TelegramNotifier sends a short summary message to a caregiver's Telegram
// chat when a recommendation completes. Purely additive: send failures are
// logged and dropped.
type TelegramNotifier struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramNotifier creates a notifier for the given bot token.
func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

// RecommendationReady sends the completion message.
func (n *TelegramNotifier) RecommendationReady(chatID int64, patientName string, rec *domain.Recommendation) {
	text := fmt.Sprintf("Dose recommendation ready for %s", patientName)
	if rec.DoseUnits != nil {
		text = fmt.Sprintf("Dose recommendation ready for %s: %.1f IU", patientName, *rec.DoseUnits)
		if rec.MedicationName != "" {
			text += " of " + rec.MedicationName
		}
	}
	if rec.Confidence != "" {
		text += fmt.Sprintf(" (confidence: %s)", rec.Confidence)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		logger.Warn("Failed to send telegram notification", "chat_id", chatID, "error", err)
	}
}
