package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/NasaVasa/robowatch/internal/usecase"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const maxMessageLen = 3800

type Handlers struct {
	alertUC *usecase.AlertUsecase
	logger  *zap.Logger
}

func NewHandlers(alertUC *usecase.AlertUsecase, logger *zap.Logger) *Handlers {
	return &Handlers{alertUC: alertUC, logger: logger}
}

func (h *Handlers) HandleUpdate(ctx context.Context, api Sender, update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	if update.Message.From == nil {
		return
	}
	if update.Message.IsCommand() {
		h.handleCommand(ctx, api, update)
		return
	}
}

func (h *Handlers) handleCommand(ctx context.Context, api Sender, update tgbotapi.Update) {
	command := update.Message.Command()
	args := update.Message.CommandArguments()
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	username := update.Message.From.UserName

	h.logger.Info(
		"telegram command received",
		zap.Int64("chat_id", chatID),
		zap.Int64("telegram_user_id", userID),
		zap.String("username", username),
		zap.String("command", command),
		zap.String("args", args),
	)

	switch command {
	case "start":
		_, err := h.alertUC.RegisterUser(ctx, userID, username)
		if err != nil {
			h.logger.Warn("start command failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
			h.reply(api, chatID, "Failed to register. Please try again.")
			return
		}
		h.logger.Info("start command complete", zap.Int64("telegram_user_id", userID))
		h.reply(api, chatID, "Welcome to RoboWatch. I watch the RoboSats order books and message you when an order fits one of your alerts.\n\n"+HelpText)
	case "help":
		h.reply(api, chatID, HelpText)
	case "new":
		input, err := ParseNewAlertArgs(args)
		if err != nil {
			h.logger.Warn("new invalid args", zap.Int64("telegram_user_id", userID), zap.String("args", args))
			h.reply(api, chatID, "Usage: /new <BUY|SELL> <CURRENCY|ANY> <premium> <payment methods> <min-max>")
			return
		}
		alert, err := h.alertUC.AddAlert(ctx, userID, input)
		if err != nil {
			h.logger.Warn("new failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		h.logger.Info("new complete", zap.Int64("telegram_user_id", userID), zap.Uint("alert_id", alert.ID))
		h.reply(api, chatID, "Alert created:\n"+FormatAlert(*alert))
	case "list":
		alerts, err := h.alertUC.ListAlerts(ctx, userID)
		if err != nil {
			h.logger.Warn("list failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		if len(alerts) == 0 {
			h.reply(api, chatID, "No alerts yet. Use /new to create one.")
			return
		}
		h.logger.Info("list complete", zap.Int64("telegram_user_id", userID), zap.Int("count", len(alerts)))
		var builder strings.Builder
		builder.WriteString("Your alerts:\n")
		for i, alert := range alerts {
			line := FormatAlert(alert) + "\n"
			if builder.Len()+len(line) > maxMessageLen {
				fmt.Fprintf(&builder, "...and %d more alerts", len(alerts)-i)
				break
			}
			builder.WriteString(line)
		}
		h.reply(api, chatID, builder.String())
	case "enable", "disable", "remove":
		alertID, err := ParseAlertID(args)
		if err != nil {
			h.logger.Warn(command+" invalid args", zap.Int64("telegram_user_id", userID), zap.String("args", args))
			h.reply(api, chatID, fmt.Sprintf("Usage: /%s <alert_id>", command))
			return
		}
		verb := "removed"
		switch command {
		case "enable":
			verb = "enabled"
			err = h.alertUC.EnableAlert(ctx, userID, alertID)
		case "disable":
			verb = "disabled"
			err = h.alertUC.DisableAlert(ctx, userID, alertID)
		default:
			err = h.alertUC.DeleteAlert(ctx, userID, alertID)
		}
		if err != nil {
			h.logger.Warn(command+" failed", zap.Int64("telegram_user_id", userID), zap.Uint("alert_id", alertID), zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		h.logger.Info(command+" complete", zap.Int64("telegram_user_id", userID), zap.Uint("alert_id", alertID))
		h.reply(api, chatID, fmt.Sprintf("Alert #%d %s.", alertID, verb))
	case "enableall", "disableall":
		var (
			changed int64
			err     error
			verb    string
		)
		if command == "enableall" {
			changed, err = h.alertUC.EnableAll(ctx, userID)
			verb = "enabled"
		} else {
			changed, err = h.alertUC.DisableAll(ctx, userID)
			verb = "disabled"
		}
		if err != nil {
			h.logger.Warn(command+" failed", zap.Int64("telegram_user_id", userID), zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		h.logger.Info(command+" complete", zap.Int64("telegram_user_id", userID), zap.Int64("changed", changed))
		h.reply(api, chatID, fmt.Sprintf("%d alerts %s.", changed, verb))
	case "extend":
		alertID, days, err := ParseExtendArgs(args)
		if err != nil {
			h.logger.Warn("extend invalid args", zap.Int64("telegram_user_id", userID), zap.String("args", args))
			h.reply(api, chatID, "Usage: /extend <alert_id> <days>")
			return
		}
		expiresAt, err := h.alertUC.ExtendAlert(ctx, userID, alertID, days)
		if err != nil {
			h.logger.Warn("extend failed", zap.Int64("telegram_user_id", userID), zap.Uint("alert_id", alertID), zap.Error(err))
			h.reply(api, chatID, h.alertErrorMessage(err))
			return
		}
		h.logger.Info("extend complete", zap.Int64("telegram_user_id", userID), zap.Uint("alert_id", alertID), zap.Time("expires_at", expiresAt))
		h.reply(api, chatID, fmt.Sprintf("Alert #%d is enabled until %s.", alertID, expiresAt.Format("2006-01-02 15:04 UTC")))
	default:
		h.logger.Warn("unknown command", zap.Int64("telegram_user_id", userID), zap.String("command", command))
		h.reply(api, chatID, "Unknown command.\n\n"+HelpText)
	}
}

func (h *Handlers) alertErrorMessage(err error) string {
	switch {
	case errors.Is(err, usecase.ErrUserNotRegistered):
		return "Please /start to register first."
	case errors.Is(err, usecase.ErrInvalidAction):
		return "Invalid action. Use BUY or SELL."
	case errors.Is(err, usecase.ErrInvalidCurrency):
		return "Unknown currency. Use a code like USD or EUR, or ANY."
	case errors.Is(err, usecase.ErrInvalidPremium):
		return "Invalid premium. Use a decimal like 2.5 or -1."
	case errors.Is(err, usecase.ErrInvalidPaymentMethod):
		return "Give at least one payment method, or any."
	case errors.Is(err, usecase.ErrInvalidAmountRange):
		return "Invalid amount range. Use min-max like 100-500, with ANY for an open side."
	case errors.Is(err, usecase.ErrInvalidDays):
		return "Days must be between 1 and 365."
	case errors.Is(err, usecase.ErrAlertNotFound):
		return "Alert not found."
	}

	h.logger.Warn("unhandled error", zap.Error(err))
	return "Something went wrong. Please try again."
}

func (h *Handlers) reply(api Sender, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := api.Send(msg); err != nil {
		h.logger.Warn("failed to send message", zap.Error(err))
	}
}
