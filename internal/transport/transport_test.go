package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conflict", fmt.Errorf("poll: %w", ErrConflict), false},
		{"unauthorized", ErrUnauthorized, false},
		{"canceled", context.Canceled, false},
		{"rate limited", &RateLimitedError{RetryAfter: time.Second}, false},
		{"network", errors.New("connection reset by peer"), true},
	}
	for _, tc := range cases {
		if got := Transient(tc.err); got != tc.want {
			t.Errorf("%s: Transient = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMapTelegramError(t *testing.T) {
	if err := mapTelegramError(&tgbotapi.Error{Code: 409, Message: "terminated by other getUpdates"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected 409 mapped to ErrConflict, got %v", err)
	}
	if err := mapTelegramError(&tgbotapi.Error{Code: 401, Message: "unauthorized"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected 401 mapped to ErrUnauthorized, got %v", err)
	}
	if err := mapTelegramError(&tgbotapi.Error{Code: 404, Message: "not found"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected 404 mapped to ErrUnauthorized, got %v", err)
	}

	err := mapTelegramError(&tgbotapi.Error{
		Code:               429,
		Message:            "too many requests",
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 7},
	})
	var rateLimited *RateLimitedError
	if !errors.As(err, &rateLimited) || rateLimited.RetryAfter != 7*time.Second {
		t.Fatalf("expected a 7s rate limit, got %v", err)
	}

	// A 429 without a wait hint still gets a non-zero one.
	err = mapTelegramError(&tgbotapi.Error{Code: 429, Message: "too many requests"})
	if !errors.As(err, &rateLimited) || rateLimited.RetryAfter <= 0 {
		t.Fatalf("expected a fallback wait, got %v", err)
	}

	plain := errors.New("dial tcp: timeout")
	if got := mapTelegramError(plain); got != plain {
		t.Fatalf("expected unknown errors passed through, got %v", got)
	}
}

func TestToInboundParsesStartAndContact(t *testing.T) {
	update := tgbotapi.Update{
		UpdateID: 5,
		Message: &tgbotapi.Message{
			MessageID: 1,
			From:      &tgbotapi.User{ID: 42},
			Chat:      &tgbotapi.Chat{ID: 42},
			Text:      "/start q_abc123",
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: 6},
			},
		},
	}
	inbound, ok := toInbound(update)
	if !ok {
		t.Fatalf("expected a message update to convert")
	}
	if !inbound.Start || inbound.DeepLink != "q_abc123" {
		t.Fatalf("expected start with deep link, got %+v", inbound)
	}

	update.Message.Text = ""
	update.Message.Entities = nil
	update.Message.Contact = &tgbotapi.Contact{UserID: 42, PhoneNumber: "+212600000001", FirstName: "أمين"}
	inbound, ok = toInbound(update)
	if !ok || inbound.Contact == nil || inbound.Contact.Phone != "+212600000001" {
		t.Fatalf("expected the contact carried over, got %+v", inbound)
	}

	if _, ok := toInbound(tgbotapi.Update{UpdateID: 6}); ok {
		t.Fatalf("expected a non-message update to be rejected")
	}
}
