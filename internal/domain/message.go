package domain

// Inbound is one platform update, already reduced to the fields the
// conversation engine cares about. The transport layer owns the mapping from
// raw platform payloads.
type Inbound struct {
	UpdateID int
	ChatID   int64
	UserID   int64
	Text     string
	Contact  *Contact
	// DeepLink carries the start-command payload, empty otherwise.
	DeepLink string
	// Start is true for any start command, with or without a payload.
	Start bool
}

type Contact struct {
	UserID    int64
	Phone     string
	FirstName string
}

// Outbound is one reply to be sent by the poller. Keyboard rows are button
// labels; RequestContact marks the single-button contact-share keyboard.
type Outbound struct {
	ChatID         int64
	Text           string
	Keyboard       [][]string
	RequestContact bool
	RemoveKeyboard bool
}
