// Package api provides handlers for external APIs and interfaces
package api

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rmaia/inmet-station/internal/usecases"
)

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase *usecases.ObservationUseCase
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.ObservationUseCase) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
	}, nil
}

// Start begins listening for and handling Telegram messages
func (t *TelegramBot) Start() {
	slog.Info("authorized on Telegram", "account", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	slog.Info("bot is now listening for messages")

	for update := range updates {
		if update.Message == nil {
			continue
		}

		slog.Info("received message",
			"from", update.Message.From.UserName,
			"id", update.Message.From.ID,
			"text", update.Message.Text)

		t.handleMessage(update)
	}
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")

	if update.Message.IsCommand() {
		t.handleCommand(update.Message, &msg)
	} else {
		t.handleNonCommand(update.Message, &msg)
	}

	if _, err := t.bot.Send(msg); err != nil {
		slog.Error("failed to send message", "error", err)
	}
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	switch message.Command() {
	case "start":
		msg.Text = "Welcome! I answer questions about the INMET station history. " +
			"Use /latest for the newest observation, /summary for the headline " +
			"figures or /help for more."

	case "help":
		msg.Text = "Available commands:\n" +
			"/start - Start the bot\n" +
			"/latest - Newest stored observation\n" +
			"/summary - Averages and totals over the whole history\n" +
			"/stations - Stations present in the store\n" +
			"/help - Show this help message"

	case "latest":
		latest, err := t.useCase.GetLatest()
		if err != nil {
			msg.Text = "Error fetching observation data. Please try again later."
			slog.Error("failed to fetch latest observation", "error", err)
			return
		}
		msg.Text = t.useCase.FormatLatest(latest)

	case "summary":
		summary, err := t.useCase.GetSummary()
		if err != nil {
			msg.Text = "Error computing the summary. Please try again later."
			slog.Error("failed to compute summary", "error", err)
			return
		}
		msg.Text = t.useCase.FormatSummary(summary)

	case "stations":
		stations, err := t.useCase.GetStations()
		if err != nil {
			msg.Text = "Error fetching station list. Please try again later."
			slog.Error("failed to fetch stations", "error", err)
			return
		}
		if len(stations) == 0 {
			msg.Text = "No stations stored yet. Run the fetch command first."
			return
		}
		msg.Text = "Stored stations:\n\n"
		for _, s := range stations {
			msg.Text += "• " + s + "\n"
		}
		if lastUpdate, err := t.useCase.GetLastUpdateTime(); err == nil && !lastUpdate.IsZero() {
			msg.Text += fmt.Sprintf("\n🕒 Last observation: %s", lastUpdate.Format("2006-01-02 15:04"))
		}

	default:
		slog.Info("unknown command", "command", message.Command(), "from", message.From.UserName)
		msg.Text = "Unknown command. Use /help to see available commands."
	}
}

// handleNonCommand routes free-text messages through the agent.
func (t *TelegramBot) handleNonCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	response, err := t.useCase.HandleNaturalLanguageQuery(context.Background(), message.Text)
	if err != nil {
		slog.Error("failed to handle query", "error", err)
		msg.Text = "I don't understand. Use /help to see available commands."
		return
	}
	msg.Text = response
}
