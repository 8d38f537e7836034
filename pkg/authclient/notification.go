package authclient

import "time"

// Kind tags a lifecycle notification.
type Kind string

const (
	KindSignedIn             Kind = "signed-in"
	KindRegistrationComplete Kind = "registration-complete"
)

// Notification is published on the manager's bus. It carries no identity
// data; subscribers read the store if they need it.
type Notification struct {
	Kind Kind
	At   time.Time
}
