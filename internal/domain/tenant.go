package domain

// TenantConfig is a read-only snapshot of one representative bot, refreshed
// from the tenant directory on every reconciliation pass.
type TenantConfig struct {
	ID          string
	DisplayName string
	Token       string
	Active      bool
	Profile     Profile
}

// Profile carries the public-facing content rendered by the conversation flow
// plus the moderation targets for operator notifications.
type Profile struct {
	Bio             string
	Party           string
	Constituency    string
	Programs        []string
	Commitments     []string
	Offices         []Office
	QuestionTopics  []string
	OperatorChatIDs []int64
	ProbeChatID     int64
}

type Office struct {
	Name    string
	Address string
	Hours   string
}

// Topics returns the tenant's configured question topics, or the shared
// default list when the profile leaves them empty.
func (p Profile) Topics(defaults []string) []string {
	if len(p.QuestionTopics) > 0 {
		return p.QuestionTopics
	}
	return defaults
}
