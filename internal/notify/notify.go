// Package notify delivers operator-facing messages about new consultation
// requests. Delivery is strictly best-effort: a failed notification is a log
// line, never a failed user confirmation.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/adnane/nowab-bots-back/internal/domain"
	"github.com/adnane/nowab-bots-back/internal/transport"
)

// Sender dispatches one text to a set of operator channels.
type Sender interface {
	Notify(ctx context.Context, chatIDs []int64, text string)
}

// ClientSender sends through the tenant's own bot connection, detached from
// the caller so the user-facing confirmation never waits on it.
type ClientSender struct {
	client  transport.Client
	logger  *log.Logger
	timeout time.Duration
}

func NewClientSender(client transport.Client, logger *log.Logger) *ClientSender {
	return &ClientSender{client: client, logger: logger, timeout: 15 * time.Second}
}

func (s *ClientSender) Notify(_ context.Context, chatIDs []int64, text string) {
	if len(chatIDs) == 0 {
		return
	}
	targets := append([]int64(nil), chatIDs...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		for _, chatID := range targets {
			err := s.client.Send(ctx, domain.Outbound{ChatID: chatID, Text: text})
			if err != nil && s.logger != nil {
				s.logger.Printf("operator notification failed chat=%d: %v", chatID, err)
			}
		}
	}()
}

// NopSender drops notifications; used when a tenant has no operator channels
// and in tests that assert nothing leaks out.
type NopSender struct{}

func (NopSender) Notify(context.Context, []int64, string) {}
