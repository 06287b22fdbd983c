package mailbox

import "strings"

// Validate rejects malformed inbound messages before any mutation happens.
// It runs before id assignment and before defaulting: a nil message or a
// message without an organization never reaches the store.
func Validate(msg *Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if strings.TrimSpace(msg.Organization) == "" {
		return ErrNoOrganization
	}
	return nil
}
