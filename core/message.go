package core

// Conversation roles. Providers receive these unchanged; the system role is
// extracted into the provider-specific system slot where required.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversation turn.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// UserMessage is a convenience constructor for a user turn.
func UserMessage(text string) Message { return Message{Role: RoleUser, Text: text} }

// AssistantMessage is a convenience constructor for an assistant turn.
func AssistantMessage(text string) Message { return Message{Role: RoleAssistant, Text: text} }

// SystemMessage is a convenience constructor for a system instruction.
func SystemMessage(text string) Message { return Message{Role: RoleSystem, Text: text} }
