package remediation

// InvocationRequest is the JSON body sent to the agent service.
type InvocationRequest struct {
	Prompt         string  `json:"prompt"`
	SwarmMode      bool    `json:"swarm_mode"`
	HumanResponse  string  `json:"human_response,omitempty"`
	ConversationID *string `json:"conversation_id,omitempty"`
}
