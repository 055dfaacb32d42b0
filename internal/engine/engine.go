// Package engine drives the per-user conversation machine. Handle maps one
// inbound message to replies plus a state transition; its only side effects
// are submission-store and audit-sink writes. It never sends anything itself
// — replies go back to the poller, notifications to the notify sender.
package engine

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/adnane/nowab-bots-back/internal/audit"
	"github.com/adnane/nowab-bots-back/internal/domain"
	"github.com/adnane/nowab-bots-back/internal/notify"
	"github.com/adnane/nowab-bots-back/internal/store"
)

const (
	minQuestionRunes = 10
	maxQuestionRunes = 500
	minNameRunes     = 3
	minFeedbackRunes = 5
	maxFeedbackRunes = 1000
	minSearchRunes   = 2
	resultsPageSize  = 5
	loopThreshold    = 6
)

type Config struct {
	// DuplicateLookback bounds how many recent questions are compared for
	// duplicate suppression. The window is heuristic, inherited as-is.
	DuplicateLookback int
	// RequestDedupeWindow suppresses repeat consultation requests from the
	// same user or phone.
	RequestDedupeWindow time.Duration
	// LoopAlertWindow rate-limits state_loop_detected events per state.
	LoopAlertWindow time.Duration
}

func (c *Config) applyDefaults() {
	if c.DuplicateLookback <= 0 {
		c.DuplicateLookback = 100
	}
	if c.RequestDedupeWindow <= 0 {
		c.RequestDedupeWindow = time.Hour
	}
	if c.LoopAlertWindow <= 0 {
		c.LoopAlertWindow = 10 * time.Minute
	}
}

type Engine struct {
	submissions store.Submissions
	sink        audit.Sink
	notifier    notify.Sender
	logger      *log.Logger
	cfg         Config
	now         func() time.Time
}

func New(submissions store.Submissions, sink audit.Sink, notifier notify.Sender, logger *log.Logger, cfg Config) *Engine {
	cfg.applyDefaults()
	if notifier == nil {
		notifier = notify.NopSender{}
	}
	return &Engine{
		submissions: submissions,
		sink:        sink,
		notifier:    notifier,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Handle processes one inbound message against the session. The caller must
// guarantee no concurrent Handle calls for the same session.
func (e *Engine) Handle(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, in domain.Inbound) []domain.Outbound {
	if !sess.State.Known() {
		// Stale in-memory state after a code change: self-heal, never crash.
		e.sink.LogEvent(ctx, audit.Event{
			TenantID: tenant.ID,
			UserID:   sess.UserID,
			State:    string(sess.State),
			Action:   "session_reset_unknown_state",
			Expected: string(domain.StateMain),
		})
		sess.Reset()
	}

	var replies []domain.Outbound
	switch {
	case in.DeepLink != "":
		replies = e.handleDeepLink(ctx, tenant, sess, in)
	case in.Start:
		sess.Reset()
		replies = reply(in.ChatID, welcomeText(tenant), mainKeyboard())
	default:
		replies = e.dispatch(ctx, tenant, sess, in)
	}

	e.observeLoop(ctx, tenant, sess)
	return replies
}

func (e *Engine) dispatch(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, in domain.Inbound) []domain.Outbound {
	text := Normalize(in.Text)

	if in.Contact == nil && matchButton(text, btnBack) {
		return e.handleBack(ctx, tenant, sess, in.ChatID)
	}

	switch sess.State {
	case domain.StateMain:
		return e.handleMain(ctx, tenant, sess, in.ChatID, text)
	case domain.StateAboutMenu:
		return e.handleAboutMenu(tenant, sess, in.ChatID, text)
	case domain.StateAboutDetail, domain.StatePrograms, domain.StateCommitmentsView:
		return reply(in.ChatID, msgUseBack, backKeyboard())
	case domain.StateOtherMenu:
		return e.handleOtherMenu(tenant, in.ChatID, text)
	case domain.StateQuestionEntry:
		return e.handleQuestionEntry(ctx, tenant, sess, in.ChatID, text)
	case domain.StateQuestionViewMethod:
		return e.handleViewMethod(tenant, sess, in.ChatID, text)
	case domain.StateQuestionViewCategory:
		return e.handleViewCategory(ctx, tenant, sess, in.ChatID, text)
	case domain.StateQuestionViewResults:
		return e.handleViewResults(ctx, tenant, sess, in.ChatID, text)
	case domain.StateQuestionViewSearchText:
		return e.handleSearchText(ctx, tenant, sess, in.ChatID, in.Text)
	case domain.StateQuestionAskEntry:
		return e.handleAskEntry(tenant, sess, in.ChatID, text)
	case domain.StateQuestionAskTopic:
		return e.handleAskTopic(tenant, sess, in.ChatID, text)
	case domain.StateQuestionAskText:
		return e.handleAskText(ctx, tenant, sess, in)
	case domain.StateFeedbackText:
		return e.handleFeedbackText(ctx, tenant, sess, in)
	case domain.StateRequestName:
		return e.handleRequestName(sess, in.ChatID, text)
	case domain.StateRequestRole:
		return e.handleRequestRole(sess, in.ChatID, text)
	case domain.StateRequestConstituency:
		return e.handleRequestConstituency(sess, in.ChatID, text)
	case domain.StateRequestContact:
		return e.handleRequestContact(ctx, tenant, sess, in)
	}

	// States are a closed set; Known() already funneled strays to MAIN.
	sess.Reset()
	return reply(in.ChatID, welcomeText(tenant), mainKeyboard())
}

// handleBack pops exactly one navigation level. Backing out of a capture
// flow counts the flow as abandoned before the reset.
func (e *Engine) handleBack(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, chatID int64) []domain.Outbound {
	if flow := sess.State.FlowKind(); flow != "" {
		e.sink.IncrementFunnel(ctx, tenant.ID, flow, audit.FunnelAbandoned)
		sess.Question = nil
		sess.Consultation = nil
	}

	target := sess.ReturnState
	sess.ReturnState = ""
	if target == "" || !target.Known() {
		sess.Reset()
		return reply(chatID, welcomeText(tenant), mainKeyboard())
	}
	return e.enter(tenant, sess, chatID, target)
}

// enter moves the session to a state and renders its prompt.
func (e *Engine) enter(tenant *domain.TenantConfig, sess *domain.Session, chatID int64, state domain.State) []domain.Outbound {
	sess.State = state
	switch state {
	case domain.StateMain:
		sess.Reset()
		return reply(chatID, welcomeText(tenant), mainKeyboard())
	case domain.StateAboutMenu:
		return reply(chatID, msgAboutMenu, aboutKeyboard())
	case domain.StateOtherMenu:
		return reply(chatID, msgOtherMenu, otherKeyboard())
	case domain.StatePrograms:
		return reply(chatID, programsText(tenant), backKeyboard())
	case domain.StateCommitmentsView:
		return reply(chatID, commitmentsText(tenant), backKeyboard())
	case domain.StateQuestionEntry:
		return reply(chatID, msgQuestionEntry, questionEntryKeyboard())
	case domain.StateQuestionViewMethod:
		return reply(chatID, msgViewMethod, viewMethodKeyboard())
	case domain.StateQuestionViewCategory:
		return reply(chatID, msgChooseTopic, topicsKeyboard(tenant.Profile.Topics(defaultTopics)))
	case domain.StateQuestionViewSearchText:
		return reply(chatID, msgSearchPrompt, backKeyboard())
	case domain.StateQuestionAskEntry:
		return reply(chatID, msgAskEntry, askEntryKeyboard())
	case domain.StateQuestionAskTopic:
		return reply(chatID, msgAskTopic, topicsKeyboard(tenant.Profile.Topics(defaultTopics)))
	case domain.StateQuestionAskText:
		return reply(chatID, msgAskText, backKeyboard())
	case domain.StateFeedbackText:
		return reply(chatID, msgFeedbackPrompt, backKeyboard())
	case domain.StateRequestName:
		return reply(chatID, msgRequestName, backKeyboard())
	case domain.StateRequestRole:
		return reply(chatID, msgRequestRole, backKeyboard())
	case domain.StateRequestConstituency:
		return reply(chatID, msgRequestWhere, backKeyboard())
	case domain.StateRequestContact:
		return []domain.Outbound{{ChatID: chatID, Text: msgRequestContact, RequestContact: true}}
	}
	sess.Reset()
	return reply(chatID, welcomeText(tenant), mainKeyboard())
}

func (e *Engine) handleDeepLink(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, in domain.Inbound) []domain.Outbound {
	sess.Reset()

	if id, ok := strings.CutPrefix(in.DeepLink, "q_"); ok && id != "" {
		submission, err := e.submissions.GetAnswered(ctx, tenant.ID, id)
		if err == nil {
			return reply(in.ChatID, answeredQuestionText(*submission), mainKeyboard())
		}
		if !errors.Is(err, store.ErrNotFound) && e.logger != nil {
			e.logger.Printf("deep link lookup failed tenant=%s id=%s: %v", tenant.ID, id, err)
		}
	}
	return reply(in.ChatID, welcomeText(tenant), mainKeyboard())
}

// observeLoop tracks consecutive messages that leave the session in the same
// non-MAIN state and raises a rate-limited audit event. Observability only,
// the transition itself is untouched.
func (e *Engine) observeLoop(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session) {
	state := sess.State
	if state == domain.StateMain {
		sess.LastState = state
		sess.RepeatCount = 0
		return
	}
	if state != sess.LastState {
		sess.LastState = state
		sess.RepeatCount = 1
		return
	}
	sess.RepeatCount++
	if sess.RepeatCount < loopThreshold {
		return
	}

	now := e.now()
	if last, ok := sess.LoopAlertAt[state]; ok && now.Sub(last) < e.cfg.LoopAlertWindow {
		return
	}
	sess.LoopAlertAt[state] = now
	e.sink.LogEvent(ctx, audit.Event{
		TenantID: tenant.ID,
		UserID:   sess.UserID,
		State:    string(state),
		Action:   "state_loop_detected",
	})
}

func reply(chatID int64, text string, keyboard [][]string) []domain.Outbound {
	return []domain.Outbound{{ChatID: chatID, Text: text, Keyboard: keyboard}}
}
