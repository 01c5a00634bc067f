package inference

// Role is who said a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn. JPEG, when set, is sent inline after the text.
type Message struct {
	Role    Role
	Content string
	JPEG    []byte
}

func NewSystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }
func NewUserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }
func NewAssistantMessage(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// NewImageMessage is a user turn carrying a camera frame.
func NewImageMessage(prompt string, jpeg []byte) Message {
	return Message{Role: RoleUser, Content: prompt, JPEG: jpeg}
}
