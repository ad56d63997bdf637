package exchange

import "github.com/varsilias/webhook-chat/pkg/types"

// Request is the JSON body POSTed to the webhook.
type Request struct {
	Message   string         `json:"message"`
	UserID    string         `json:"user_id"`
	Timestamp string         `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Context   RequestContext `json:"context"`
}

type RequestContext struct {
	PreviousMessages []types.Message `json:"previous_messages"`
	UserAgent        string          `json:"user_agent"`
	Platform         string          `json:"platform"`
}

// selfTestRequest is the connectivity probe body.
type selfTestRequest struct {
	Test      bool   `json:"test"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
