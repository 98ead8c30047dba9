package enums

import "fmt"

// BotStatus is the declared run state of a trading bot. The API toggles it
// between stopped and running; the execution engine reports error.
type BotStatus string

const (
	BotStatusStopped BotStatus = "stopped"
	BotStatusRunning BotStatus = "running"
	BotStatusError   BotStatus = "error"
)

var validBotStatuses = []BotStatus{
	BotStatusStopped,
	BotStatusRunning,
	BotStatusError,
}

// String implements fmt.Stringer.
func (s BotStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s BotStatus) IsValid() bool {
	for _, candidate := range validBotStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBotStatus converts raw input into a BotStatus.
func ParseBotStatus(value string) (BotStatus, error) {
	for _, candidate := range validBotStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bot status %q", value)
}
