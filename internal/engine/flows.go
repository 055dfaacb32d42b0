package engine

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/adnane/nowab-bots-back/internal/audit"
	"github.com/adnane/nowab-bots-back/internal/domain"
	"github.com/adnane/nowab-bots-back/internal/store"
)

func (e *Engine) handleMain(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, chatID int64, text string) []domain.Outbound {
	switch {
	case matchButton(text, btnAbout):
		return e.enter(tenant, sess, chatID, domain.StateAboutMenu)
	case matchButton(text, btnPrograms):
		return e.enter(tenant, sess, chatID, domain.StatePrograms)
	case matchButton(text, btnCommitments):
		return e.enter(tenant, sess, chatID, domain.StateCommitmentsView)
	case matchButton(text, btnQuestions):
		return e.enter(tenant, sess, chatID, domain.StateQuestionEntry)
	case matchButton(text, btnFeedback):
		e.sink.IncrementFunnel(ctx, tenant.ID, domain.FlowFeedback, audit.FunnelStarted)
		return e.enter(tenant, sess, chatID, domain.StateFeedbackText)
	case matchButton(text, btnRequest):
		e.sink.IncrementFunnel(ctx, tenant.ID, domain.FlowConsultation, audit.FunnelStarted)
		sess.Consultation = &domain.ConsultationDraft{}
		return e.enter(tenant, sess, chatID, domain.StateRequestName)
	case matchButton(text, btnOther):
		return e.enter(tenant, sess, chatID, domain.StateOtherMenu)
	}
	return reply(chatID, msgChooseFromMenu, mainKeyboard())
}

func (e *Engine) handleAboutMenu(tenant *domain.TenantConfig, sess *domain.Session, chatID int64, text string) []domain.Outbound {
	var detail string
	switch {
	case matchButton(text, btnBio):
		detail = tenant.Profile.Bio
	case matchButton(text, btnParty):
		detail = tenant.Profile.Party
	case matchButton(text, btnConstituency):
		detail = tenant.Profile.Constituency
	case matchButton(text, btnOffices):
		detail = officesText(tenant)
	default:
		return reply(chatID, msgAboutMenu, aboutKeyboard())
	}
	if detail == "" {
		detail = "لم يتم نشر هذه المعلومة بعد."
	}
	sess.ReturnState = domain.StateAboutMenu
	sess.State = domain.StateAboutDetail
	return reply(chatID, detail, backKeyboard())
}

func (e *Engine) handleOtherMenu(tenant *domain.TenantConfig, chatID int64, text string) []domain.Outbound {
	switch {
	case matchButton(text, btnHowToReach):
		return reply(chatID, officesText(tenant), otherKeyboard())
	case matchButton(text, btnAboutPlatform):
		return reply(chatID, "منصة تواصل رسمية بين النواب والمواطنين، تديرها مكاتب النواب.", otherKeyboard())
	}
	return reply(chatID, msgOtherMenu, otherKeyboard())
}

func (e *Engine) handleQuestionEntry(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, chatID int64, text string) []domain.Outbound {
	switch {
	case matchButton(text, btnBrowse):
		return e.enter(tenant, sess, chatID, domain.StateQuestionViewMethod)
	case matchButton(text, btnAsk):
		e.sink.IncrementFunnel(ctx, tenant.ID, domain.FlowQuestion, audit.FunnelStarted)
		return e.enter(tenant, sess, chatID, domain.StateQuestionAskEntry)
	}
	return reply(chatID, msgQuestionEntry, questionEntryKeyboard())
}

func (e *Engine) handleAskEntry(tenant *domain.TenantConfig, sess *domain.Session, chatID int64, text string) []domain.Outbound {
	if matchButton(text, btnContinue) {
		return e.enter(tenant, sess, chatID, domain.StateQuestionAskTopic)
	}
	return reply(chatID, msgAskEntry, askEntryKeyboard())
}

func (e *Engine) handleAskTopic(tenant *domain.TenantConfig, sess *domain.Session, chatID int64, text string) []domain.Outbound {
	topic, ok := matchTopic(text, tenant.Profile.Topics(defaultTopics))
	if !ok {
		return reply(chatID, msgAskTopic, topicsKeyboard(tenant.Profile.Topics(defaultTopics)))
	}
	sess.Question = &domain.QuestionDraft{Topic: topic}
	return e.enter(tenant, sess, chatID, domain.StateQuestionAskText)
}

func (e *Engine) handleAskText(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, in domain.Inbound) []domain.Outbound {
	text := Normalize(in.Text)
	length := utf8.RuneCountInString(text)
	if length < minQuestionRunes {
		return reply(in.ChatID, msgQuestionTooShort, backKeyboard())
	}
	if length > maxQuestionRunes {
		return reply(in.ChatID, msgQuestionTooLong, backKeyboard())
	}

	if e.isDuplicateQuestion(ctx, tenant, text) {
		e.sink.LogEvent(ctx, audit.Event{
			TenantID: tenant.ID,
			UserID:   sess.UserID,
			State:    string(sess.State),
			Action:   "duplicate_question_suppressed",
		})
		sess.Reset()
		return reply(in.ChatID, msgQuestionDuplicate, mainKeyboard())
	}

	topic := ""
	if sess.Question != nil {
		topic = sess.Question.Topic
	}
	submission := &domain.Submission{
		TenantID: tenant.ID,
		UserID:   sess.UserID,
		Kind:     domain.KindQuestion,
		Topic:    topic,
		Text:     text,
		Status:   domain.StatusPending,
	}
	if _, err := e.submissions.Append(ctx, submission); err != nil {
		if e.logger != nil {
			e.logger.Printf("question append failed tenant=%s user=%d: %v", tenant.ID, sess.UserID, err)
		}
		return reply(in.ChatID, msgSubmitFailed, backKeyboard())
	}

	e.sink.IncrementFunnel(ctx, tenant.ID, domain.FlowQuestion, audit.FunnelCompleted)
	sess.Reset()
	return reply(in.ChatID, msgQuestionReceived, mainKeyboard())
}

// isDuplicateQuestion compares the canonical text against the tenant's most
// recent questions. A store failure fails open: better a rare duplicate than
// a rejected legitimate question.
func (e *Engine) isDuplicateQuestion(ctx context.Context, tenant *domain.TenantConfig, text string) bool {
	recent, err := e.submissions.RecentByTenantAndKind(ctx, tenant.ID, domain.KindQuestion, e.cfg.DuplicateLookback)
	if err != nil {
		if e.logger != nil {
			e.logger.Printf("duplicate lookback failed tenant=%s: %v", tenant.ID, err)
		}
		return false
	}
	canonical := Canonical(text)
	for _, submission := range recent {
		if Canonical(submission.Text) == canonical {
			return true
		}
	}
	return false
}

func (e *Engine) handleFeedbackText(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, in domain.Inbound) []domain.Outbound {
	text := Normalize(in.Text)
	length := utf8.RuneCountInString(text)
	if length < minFeedbackRunes {
		return reply(in.ChatID, msgFeedbackTooShort, backKeyboard())
	}
	if length > maxFeedbackRunes {
		return reply(in.ChatID, msgFeedbackTooLong, backKeyboard())
	}

	submission := &domain.Submission{
		TenantID: tenant.ID,
		UserID:   sess.UserID,
		Kind:     domain.KindFeedback,
		Text:     text,
		Status:   domain.StatusPending,
	}
	if _, err := e.submissions.Append(ctx, submission); err != nil {
		if e.logger != nil {
			e.logger.Printf("feedback append failed tenant=%s user=%d: %v", tenant.ID, sess.UserID, err)
		}
		return reply(in.ChatID, msgSubmitFailed, backKeyboard())
	}

	e.sink.IncrementFunnel(ctx, tenant.ID, domain.FlowFeedback, audit.FunnelCompleted)
	sess.Reset()
	return reply(in.ChatID, msgFeedbackReceived, mainKeyboard())
}

func (e *Engine) handleRequestName(sess *domain.Session, chatID int64, text string) []domain.Outbound {
	if utf8.RuneCountInString(text) < minNameRunes {
		return reply(chatID, msgNameTooShort, backKeyboard())
	}
	draft := sess.Consultation
	if draft == nil {
		draft = &domain.ConsultationDraft{}
		sess.Consultation = draft
	}
	draft.Name = text
	sess.State = domain.StateRequestRole
	return reply(chatID, msgRequestRole, backKeyboard())
}

func (e *Engine) handleRequestRole(sess *domain.Session, chatID int64, text string) []domain.Outbound {
	if utf8.RuneCountInString(text) < 2 {
		return reply(chatID, msgRoleTooShort, backKeyboard())
	}
	if sess.Consultation == nil {
		sess.Consultation = &domain.ConsultationDraft{}
	}
	sess.Consultation.Role = text
	sess.State = domain.StateRequestConstituency
	return reply(chatID, msgRequestWhere, backKeyboard())
}

func (e *Engine) handleRequestConstituency(sess *domain.Session, chatID int64, text string) []domain.Outbound {
	if utf8.RuneCountInString(text) < 2 {
		return reply(chatID, msgWhereTooShort, backKeyboard())
	}
	if sess.Consultation == nil {
		sess.Consultation = &domain.ConsultationDraft{}
	}
	sess.Consultation.Constituency = text
	sess.State = domain.StateRequestContact
	return []domain.Outbound{{ChatID: chatID, Text: msgRequestContact, RequestContact: true}}
}

func (e *Engine) handleRequestContact(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, in domain.Inbound) []domain.Outbound {
	contact := in.Contact
	if contact == nil {
		return []domain.Outbound{{ChatID: in.ChatID, Text: msgContactRequired, RequestContact: true}}
	}
	// Sharing someone else's saved contact must not submit on their behalf.
	if contact.UserID != in.UserID {
		e.sink.LogEvent(ctx, audit.Event{
			TenantID: tenant.ID,
			UserID:   sess.UserID,
			State:    string(sess.State),
			Action:   "contact_identity_mismatch",
		})
		return []domain.Outbound{{ChatID: in.ChatID, Text: msgContactNotYours, RequestContact: true}}
	}

	existing, err := e.submissions.FindRecentRequest(ctx, tenant.ID, in.UserID, e.cfg.RequestDedupeWindow, contact.Phone)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		if e.logger != nil {
			e.logger.Printf("request dedupe lookup failed tenant=%s user=%d: %v", tenant.ID, in.UserID, err)
		}
	}
	if err == nil && existing != nil {
		e.sink.LogEvent(ctx, audit.Event{
			TenantID: tenant.ID,
			UserID:   sess.UserID,
			State:    string(sess.State),
			Action:   "request_deduped",
		})
		sess.Reset()
		return reply(in.ChatID, msgRequestDuplicate, mainKeyboard())
	}

	draft := sess.Consultation
	if draft == nil {
		draft = &domain.ConsultationDraft{}
	}
	submission := &domain.Submission{
		TenantID:           tenant.ID,
		UserID:             in.UserID,
		Kind:               domain.KindConsultationRequest,
		AuthorName:         draft.Name,
		AuthorRole:         draft.Role,
		AuthorConstituency: draft.Constituency,
		Phone:              contact.Phone,
		Status:             domain.StatusPending,
	}
	if _, err := e.submissions.Append(ctx, submission); err != nil {
		if e.logger != nil {
			e.logger.Printf("request append failed tenant=%s user=%d: %v", tenant.ID, in.UserID, err)
		}
		return []domain.Outbound{{ChatID: in.ChatID, Text: msgSubmitFailed, RequestContact: true}}
	}

	e.sink.IncrementFunnel(ctx, tenant.ID, domain.FlowConsultation, audit.FunnelCompleted)
	e.notifier.Notify(ctx, tenant.Profile.OperatorChatIDs, operatorRequestText(tenant, submission))

	sess.Reset()
	return reply(in.ChatID, msgRequestReceived, mainKeyboard())
}

// matchTopic resolves user input to a configured topic, exact match first,
// then substring for decorated labels.
func matchTopic(text string, topics []string) (string, bool) {
	for _, topic := range topics {
		if text == topic {
			return topic, true
		}
	}
	for _, topic := range topics {
		if topic != "" && containsFold(text, topic) {
			return topic, true
		}
	}
	return "", false
}
