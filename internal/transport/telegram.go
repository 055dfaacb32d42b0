package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// TelegramDialer builds Telegram clients. The HTTP timeout must exceed the
// long-poll timeout or every GetUpdates call dies early.
type TelegramDialer struct {
	httpTimeout time.Duration
}

func NewTelegramDialer(pollTimeout time.Duration) *TelegramDialer {
	return &TelegramDialer{httpTimeout: pollTimeout + 10*time.Second}
}

func (d *TelegramDialer) Dial(ctx context.Context, token string) (Client, error) {
	httpClient := &http.Client{Timeout: d.httpTimeout}

	type dialResult struct {
		bot *tgbotapi.BotAPI
		err error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
		resultCh <- dialResult{bot: bot, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-resultCh:
		if result.err != nil {
			return nil, mapTelegramError(result.err)
		}
		return &telegramClient{bot: result.bot, httpClient: httpClient}, nil
	}
}

type telegramClient struct {
	bot        *tgbotapi.BotAPI
	httpClient *http.Client
}

func (c *telegramClient) GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]domain.Inbound, error) {
	cfg := tgbotapi.UpdateConfig{
		Offset:         offset,
		Timeout:        int(timeout.Seconds()),
		AllowedUpdates: []string{"message"},
	}

	updates, err := await(ctx, func() ([]tgbotapi.Update, error) {
		return c.bot.GetUpdates(cfg)
	})
	if err != nil {
		return nil, mapTelegramError(err)
	}

	inbounds := make([]domain.Inbound, 0, len(updates))
	for _, update := range updates {
		inbound, ok := toInbound(update)
		if !ok {
			// Still advance past non-message updates.
			inbounds = append(inbounds, domain.Inbound{UpdateID: update.UpdateID, ChatID: 0})
			continue
		}
		inbounds = append(inbounds, inbound)
	}
	return inbounds, nil
}

func (c *telegramClient) Send(ctx context.Context, out domain.Outbound) error {
	msg := tgbotapi.NewMessage(out.ChatID, out.Text)
	switch {
	case out.RequestContact:
		markup := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(contactButtonLabel)),
		)
		markup.ResizeKeyboard = true
		msg.ReplyMarkup = markup
	case len(out.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(out.Keyboard))
		for _, row := range out.Keyboard {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, buttons)
		}
		markup := tgbotapi.NewReplyKeyboard(rows...)
		markup.ResizeKeyboard = true
		msg.ReplyMarkup = markup
	case out.RemoveKeyboard:
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	}

	_, err := await(ctx, func() (tgbotapi.Message, error) {
		return c.bot.Send(msg)
	})
	if err != nil {
		return mapTelegramError(err)
	}
	return nil
}

func (c *telegramClient) DeleteWebhook(ctx context.Context) error {
	_, err := await(ctx, func() (*tgbotapi.APIResponse, error) {
		return c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: false})
	})
	if err != nil {
		return mapTelegramError(err)
	}
	return nil
}

func (c *telegramClient) Username() string {
	return c.bot.Self.UserName
}

func (c *telegramClient) Close() {
	c.httpClient.CloseIdleConnections()
}

// await runs a blocking library call in a goroutine and honors ctx; the
// underlying HTTP call is bounded by the client timeout either way.
func await[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	resultCh := make(chan result, 1)
	go func() {
		value, err := call()
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-resultCh:
		return r.value, r.err
	}
}

func toInbound(update tgbotapi.Update) (domain.Inbound, bool) {
	message := update.Message
	if message == nil || message.From == nil {
		return domain.Inbound{}, false
	}

	inbound := domain.Inbound{
		UpdateID: update.UpdateID,
		ChatID:   message.Chat.ID,
		UserID:   message.From.ID,
		Text:     message.Text,
	}
	if message.Contact != nil {
		inbound.Contact = &domain.Contact{
			UserID:    message.Contact.UserID,
			Phone:     message.Contact.PhoneNumber,
			FirstName: message.Contact.FirstName,
		}
	}
	if message.IsCommand() && message.Command() == "start" {
		inbound.Start = true
		inbound.DeepLink = strings.TrimSpace(message.CommandArguments())
	}
	return inbound, true
}

func mapTelegramError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", ErrConflict, apiErr.Message)
		case http.StatusUnauthorized, http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
		case http.StatusTooManyRequests:
			retryAfter := time.Duration(apiErr.RetryAfter) * time.Second
			if retryAfter <= 0 {
				retryAfter = time.Second
			}
			return &RateLimitedError{RetryAfter: retryAfter}
		}
	}
	return err
}

// The prompt text names the action; the button itself stays short.
const contactButtonLabel = "مشاركة رقم الهاتف"
