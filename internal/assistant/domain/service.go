package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type ReplyRequest struct {
	GuestMessage string `json:"guest_message"`
	// Instructions override the concierge persona and need custom_ai.
	Instructions string `json:"instructions,omitempty"`
	MaxTokens    int    `json:"max_tokens,omitempty"`
}

type Reply struct {
	Text       string `json:"text"`
	Model      string `json:"model,omitempty"`
	TokensUsed int    `json:"tokens_used"`
	// ResponsesUsed is the ai_responses counter after this reply was reserved.
	ResponsesUsed int64 `json:"responses_used"`
	Limit         int64 `json:"limit"`
}

type Service interface {
	// Reply consumes one ai_responses unit before calling the completion
	// client. A failed completion does not give the unit back.
	Reply(ctx context.Context, tenantID snowflake.ID, req ReplyRequest) (*Reply, error)
}

var ErrEmptyMessage = errors.New("empty_message")
