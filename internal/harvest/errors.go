package harvest

import "fmt"

// ConfigurationError aborts a run before any dispatch. Per-source fetch and
// extraction failures are captured as report entries instead.
type ConfigurationError struct {
	SourceID string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.SourceID == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error for source %q: %s", e.SourceID, e.Reason)
}
