package mailbox

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidPayload is returned when an inbound message fails validation.
	ErrInvalidPayload = errors.New("invalid message payload")

	// ErrNilMessage is returned when no message information is provided.
	ErrNilMessage = fmt.Errorf("%w: no message information was provided", ErrInvalidPayload)

	// ErrNoOrganization is returned when a submitted message names no organization.
	ErrNoOrganization = fmt.Errorf("%w: no organization was provided", ErrInvalidPayload)

	// ErrUnknownPriority is returned when a priority string cannot be parsed.
	ErrUnknownPriority = errors.New("unknown priority")

	// ErrUnknownNotificationType is returned when a notification type string cannot be parsed.
	ErrUnknownNotificationType = errors.New("unknown notification type")

	// ErrStorageFailure is returned when the backing store could not complete an operation.
	ErrStorageFailure = errors.New("mailbox storage failure")

	// ErrNoMessage is returned by Retrieve when no visible message matches the
	// criteria. It is a normal empty result, not a failure.
	ErrNoMessage = errors.New("no message matching the provided criteria")

	// ErrStoreNil is returned when a nil store is provided.
	ErrStoreNil = errors.New("store cannot be nil")

	// ErrSeenRegistryNil is returned when a nil seen registry is provided.
	ErrSeenRegistryNil = errors.New("seen registry cannot be nil")

	// ErrIDGeneratorNil is returned when a nil id generator is provided.
	ErrIDGeneratorNil = errors.New("id generator cannot be nil")
)
