package handoff

import "sync"

// DefaultHumanPrompt is shown when the service asks for input without a prompt.
const DefaultHumanPrompt = "Please provide your input:"

// Session holds the one conversation currently waiting on a human decision.
// A new analysis or a submitted/cancelled decision clears it.
type Session struct {
	mu             sync.Mutex
	conversationID *string
	prompt         string
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{}
}

// Activate records the pending handoff. A nil conversationID is kept as absent.
func (s *Session) Activate(conversationID *string, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID != nil {
		id := *conversationID
		s.conversationID = &id
	} else {
		s.conversationID = nil
	}
	s.prompt = prompt
}

// Clear forgets the pending handoff and returns the conversation id it held.
func (s *Session) Clear() *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.conversationID
	s.conversationID = nil
	s.prompt = ""
	return id
}

// ConversationID returns the active conversation id, if any.
func (s *Session) ConversationID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conversationID == nil {
		return "", false
	}
	return *s.conversationID, true
}

// Prompt returns the prompt recorded with the pending handoff.
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Snapshot is a copy of the session state for presenters.
type Snapshot struct {
	ConversationID string `json:"conversation_id,omitempty" yaml:"conversation_id,omitempty"`
	Prompt         string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Prompt: s.prompt}
	if s.conversationID != nil {
		snap.ConversationID = *s.conversationID
	}
	return snap
}
