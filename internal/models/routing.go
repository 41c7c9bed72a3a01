// ABOUTME: Channel and session-kind types used for continuity and action gating
// ABOUTME: A channel is where a turn came from; a session kind is its continuity classification
package models

// Channel identifies the origin of a turn
type Channel string

const (
	// ChannelInteractive - a person typing into a CLI, web or MCP surface
	ChannelInteractive Channel = "interactive"

	// ChannelAutomation - scheduled or scripted turns; planned actions run without an allowlist
	ChannelAutomation Channel = "automation"
)

// IsInteractive reports whether the channel is the interactive channel
func (c Channel) IsInteractive() bool {
	return c == ChannelInteractive
}

// IsAutomation reports whether the channel is the automation channel
func (c Channel) IsAutomation() bool {
	return c == ChannelAutomation
}

// SessionKind is the continuity classification of a turn
type SessionKind string

const (
	// SessionNew - first interactive turn seen for a (user, route) key
	SessionNew SessionKind = "new"

	// SessionContinuation - interactive turn with prior history for its key
	SessionContinuation SessionKind = "continuation"

	// SessionAutomation - any turn arriving on a non-interactive channel
	SessionAutomation SessionKind = "automation"
)

// IsValid checks if the session kind is one of the defined values
func (s SessionKind) IsValid() bool {
	switch s {
	case SessionNew, SessionContinuation, SessionAutomation:
		return true
	}
	return false
}
