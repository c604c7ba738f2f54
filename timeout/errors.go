package timeout

import (
	"errors"

	"durandal/registry"
)

var (
	// ErrNoTimeoutRole means the guild has no timeout role configured.
	ErrNoTimeoutRole = errors.New("no timeout role set")
	// ErrInvalidDuration means the requested span did not parse or was not positive.
	ErrInvalidDuration = errors.New("invalid time")
	// ErrCommunityNotLoaded means the guild has not become available yet.
	ErrCommunityNotLoaded = registry.ErrNotLoaded
	// ErrGatewayFailure means Discord rejected or timed out a role or message call.
	ErrGatewayFailure = errors.New("gateway failure")
	// ErrStoreFailure means the durable write failed and nothing changed.
	ErrStoreFailure = registry.ErrPersist
	// ErrSubjectGone is returned by a Gateway when the member is not in the guild.
	ErrSubjectGone = errors.New("member not in guild")
)

// Kind classifies an engine error for presentation.
type Kind int

const (
	KindNone Kind = iota
	KindConfiguration
	KindValidation
	KindNotLoaded
	KindGateway
	KindStore
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindNotLoaded:
		return "not_loaded"
	case KindGateway:
		return "gateway"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// KindOf maps err onto the error taxonomy of the engine.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNoTimeoutRole):
		return KindConfiguration
	case errors.Is(err, ErrInvalidDuration):
		return KindValidation
	case errors.Is(err, ErrCommunityNotLoaded):
		return KindNotLoaded
	case errors.Is(err, ErrStoreFailure):
		return KindStore
	case errors.Is(err, ErrGatewayFailure), errors.Is(err, ErrSubjectGone):
		return KindGateway
	default:
		return KindUnknown
	}
}

func isSubjectGone(err error) bool {
	return errors.Is(err, ErrSubjectGone)
}
