package contracts

import "errors"

// Sentinel errors shared across packages
var (
	// ErrNotFound is returned by repositories when no entity has the key
	ErrNotFound = errors.New("not found")

	// ErrPriceUnavailable is returned when no live quote exists
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrSettingsNotConfigured means no BotSettings record exists
	ErrSettingsNotConfigured = errors.New("bot settings not configured")

	// ErrSettingsAmbiguous means more than one BotSettings record exists
	ErrSettingsAmbiguous = errors.New("bot settings ambiguous: more than one record")

	// ErrInvalidTransition is returned on a backward trade status change
	ErrInvalidTransition = errors.New("invalid status transition")
)
