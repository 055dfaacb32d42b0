package domain

import "time"

// State is one node of the per-user conversation machine. The set is closed:
// anything outside it is treated as corruption and reset to StateMain.
type State string

const (
	StateMain            State = "main"
	StateAboutMenu       State = "about_menu"
	StateAboutDetail     State = "about_detail"
	StateOtherMenu       State = "other_menu"
	StatePrograms        State = "programs"
	StateCommitmentsView State = "commitments_view"
	StateFeedbackText    State = "feedback_text"

	StateQuestionEntry          State = "question_entry"
	StateQuestionViewMethod     State = "question_view_method"
	StateQuestionViewCategory   State = "question_view_category"
	StateQuestionViewResults    State = "question_view_results"
	StateQuestionViewSearchText State = "question_view_search_text"
	StateQuestionAskEntry       State = "question_ask_entry"
	StateQuestionAskTopic       State = "question_ask_topic"
	StateQuestionAskText        State = "question_ask_text"

	StateRequestName         State = "botreq_name"
	StateRequestRole         State = "botreq_role"
	StateRequestConstituency State = "botreq_constituency"
	StateRequestContact      State = "botreq_contact"
)

var knownStates = map[State]struct{}{
	StateMain: {}, StateAboutMenu: {}, StateAboutDetail: {}, StateOtherMenu: {},
	StatePrograms: {}, StateCommitmentsView: {}, StateFeedbackText: {},
	StateQuestionEntry: {}, StateQuestionViewMethod: {}, StateQuestionViewCategory: {},
	StateQuestionViewResults: {}, StateQuestionViewSearchText: {},
	StateQuestionAskEntry: {}, StateQuestionAskTopic: {}, StateQuestionAskText: {},
	StateRequestName: {}, StateRequestRole: {}, StateRequestConstituency: {},
	StateRequestContact: {},
}

func (s State) Known() bool {
	_, ok := knownStates[s]
	return ok
}

// FlowKind maps a capture sub-state to its funnel flow. States outside the
// three capture flows return the empty kind.
func (s State) FlowKind() FlowKind {
	switch s {
	case StateQuestionAskEntry, StateQuestionAskTopic, StateQuestionAskText:
		return FlowQuestion
	case StateFeedbackText:
		return FlowFeedback
	case StateRequestName, StateRequestRole, StateRequestConstituency, StateRequestContact:
		return FlowConsultation
	}
	return ""
}

// QuestionDraft holds the fields collected while asking a question.
type QuestionDraft struct {
	Topic string
}

// ConsultationDraft holds the fields collected across the botreq sub-states.
type ConsultationDraft struct {
	Name         string
	Role         string
	Constituency string
}

// BrowseView holds paging state for answered-question browsing.
type BrowseView struct {
	Topic  string
	Query  string
	Offset int
}

// Session is the ephemeral dialogue state for one (tenant, end user) pair.
// It lives only in process memory; a restart loses it by design.
type Session struct {
	TenantID string
	UserID   int64
	State    State
	// ReturnState records a single back-navigation level. Deeper nesting
	// collapses to StateMain.
	ReturnState State

	Question     *QuestionDraft
	Consultation *ConsultationDraft
	Browse       *BrowseView

	// Loop detection bookkeeping.
	LastState   State
	RepeatCount int
	LoopAlertAt map[State]time.Time

	LastSeen time.Time
}

func NewSession(tenantID string, userID int64) *Session {
	return &Session{
		TenantID:    tenantID,
		UserID:      userID,
		State:       StateMain,
		LoopAlertAt: make(map[State]time.Time),
	}
}

// Reset returns the session to the main menu and drops all transient capture
// data. Loop counters survive so that repeated resets remain observable.
func (s *Session) Reset() {
	s.State = StateMain
	s.ReturnState = ""
	s.Question = nil
	s.Consultation = nil
	s.Browse = nil
}
