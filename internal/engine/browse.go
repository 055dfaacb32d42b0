package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

func (e *Engine) handleViewMethod(tenant *domain.TenantConfig, sess *domain.Session, chatID int64, text string) []domain.Outbound {
	switch {
	case matchButton(text, btnByCategory):
		return e.enter(tenant, sess, chatID, domain.StateQuestionViewCategory)
	case matchButton(text, btnBySearch):
		return e.enter(tenant, sess, chatID, domain.StateQuestionViewSearchText)
	}
	return reply(chatID, msgViewMethod, viewMethodKeyboard())
}

func (e *Engine) handleViewCategory(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, chatID int64, text string) []domain.Outbound {
	topics := tenant.Profile.Topics(defaultTopics)
	topic, ok := matchTopic(text, topics)
	if !ok {
		return reply(chatID, msgChooseTopic, topicsKeyboard(topics))
	}
	sess.Browse = &domain.BrowseView{Topic: topic}
	sess.ReturnState = domain.StateQuestionViewCategory
	sess.State = domain.StateQuestionViewResults
	return e.renderResults(ctx, tenant, sess, chatID)
}

func (e *Engine) handleSearchText(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, chatID int64, raw string) []domain.Outbound {
	query := Normalize(raw)
	if utf8.RuneCountInString(query) < minSearchRunes {
		return reply(chatID, msgSearchTooShort, backKeyboard())
	}
	sess.Browse = &domain.BrowseView{Query: query}
	sess.ReturnState = domain.StateQuestionViewSearchText
	sess.State = domain.StateQuestionViewResults
	return e.renderResults(ctx, tenant, sess, chatID)
}

func (e *Engine) handleViewResults(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, chatID int64, text string) []domain.Outbound {
	if !matchButton(text, btnMore) {
		return reply(chatID, msgUseBack, resultsKeyboard())
	}
	view := sess.Browse
	if view == nil {
		return reply(chatID, msgUseBack, resultsKeyboard())
	}
	if view.Query != "" {
		// Search results are a single bounded page.
		return reply(chatID, msgNoMoreResults, resultsKeyboard())
	}
	view.Offset += resultsPageSize
	return e.renderResults(ctx, tenant, sess, chatID)
}

func (e *Engine) renderResults(ctx context.Context, tenant *domain.TenantConfig, sess *domain.Session, chatID int64) []domain.Outbound {
	view := sess.Browse
	if view == nil {
		sess.Reset()
		return reply(chatID, welcomeText(tenant), mainKeyboard())
	}

	var (
		results []domain.Submission
		err     error
	)
	if view.Query != "" {
		results, err = e.submissions.SearchAnswered(ctx, tenant.ID, view.Query, resultsPageSize)
	} else {
		results, err = e.submissions.AnsweredByTopic(ctx, tenant.ID, view.Topic, view.Offset, resultsPageSize)
	}
	if err != nil {
		if e.logger != nil {
			e.logger.Printf("answered browse failed tenant=%s: %v", tenant.ID, err)
		}
		return reply(chatID, msgSubmitFailed, resultsKeyboard())
	}

	if len(results) == 0 {
		if view.Offset > 0 {
			return reply(chatID, msgNoMoreResults, resultsKeyboard())
		}
		if view.Query != "" {
			return reply(chatID, msgNoSearchResults, resultsKeyboard())
		}
		return reply(chatID, msgNoAnswered, resultsKeyboard())
	}

	var b strings.Builder
	for i, submission := range results {
		if i > 0 {
			b.WriteString("\n\n————————\n\n")
		}
		b.WriteString(answeredQuestionText(submission))
	}
	if view.Topic != "" {
		fmt.Fprintf(&b, "\n\n(الموضوع: %s)", view.Topic)
	}
	return reply(chatID, b.String(), resultsKeyboard())
}
