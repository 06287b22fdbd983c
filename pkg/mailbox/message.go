package mailbox

import (
	"fmt"
	"strings"
	"time"
)

// DefaultOrganization is the tenant key used when a caller does not name one.
const DefaultOrganization = "DEFAULT"

// DefaultTTL is applied to messages submitted without an explicit expiration.
const DefaultTTL = 5 * time.Minute

// Priority orders message selection within an organization's mailbox.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// priorityTiers lists priorities in selection order. Selection is a strict
// three-tier preference, not a numeric sort; insertion order breaks ties
// within a tier.
var priorityTiers = [...]Priority{PriorityHigh, PriorityNormal, PriorityLow}

// ParsePriority converts user input into a Priority, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPriority, s)
	}
}

// Valid reports whether the priority is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityNormal, PriorityLow:
		return true
	default:
		return false
	}
}

// NotificationType classifies how a message is delivered. TypeAll messages
// are broadcast: retained until expiry and delivered at most once per
// distinct consumer. Every other type is directed: consumed destructively by
// the first matching retrieval.
type NotificationType string

const (
	TypeAll   NotificationType = "ALL"
	TypeMaint NotificationType = "MAINT"
	TypeEmail NotificationType = "EMAIL"
	TypeSMS   NotificationType = "SMS"
	TypeSlack NotificationType = "SLACK"
)

// ParseNotificationType converts user input into a NotificationType,
// case-insensitively.
func ParseNotificationType(s string) (NotificationType, error) {
	switch t := NotificationType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeAll, TypeMaint, TypeEmail, TypeSMS, TypeSlack:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownNotificationType, s)
	}
}

// Valid reports whether the type is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeAll, TypeMaint, TypeEmail, TypeSMS, TypeSlack:
		return true
	default:
		return false
	}
}

// Broadcast reports whether messages of this type are delivered to every
// consumer rather than consumed by the first one.
func (t NotificationType) Broadcast() bool {
	return t == TypeAll
}

// Message is the core domain model for mailbox entries.
type Message struct {
	ID               uint64           `json:"id"`
	Organization     string           `json:"organization"`
	Priority         Priority         `json:"priority"`
	NotificationType NotificationType `json:"notificationType"`
	Payload          string           `json:"payload"`
	CreatedAt        time.Time        `json:"createdAt"`
	ExpiresAt        time.Time        `json:"expiresAt"`
}

// Expired reports whether the message is no longer visible at the given
// instant. The comparison is strict: a message expiring exactly now is
// already invisible.
func (m *Message) Expired(now time.Time) bool {
	return !m.ExpiresAt.After(now)
}

// NormalizeOrganization upper-cases the tenant key and substitutes
// DefaultOrganization when it is blank, so lookups are case-insensitive and
// tenant-optional.
func NormalizeOrganization(org string) string {
	org = strings.ToUpper(strings.TrimSpace(org))
	if org == "" {
		return DefaultOrganization
	}
	return org
}
