package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
)

// SendRequest carries either a free-form Body or a Template with variables.
type SendRequest struct {
	Channel   string            `json:"channel"`
	To        string            `json:"to"`
	Body      string            `json:"body,omitempty"`
	Template  string            `json:"template,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

type Service interface {
	Send(ctx context.Context, tenantID snowflake.ID, req SendRequest) (*integrationdomain.Receipt, error)
}

var (
	ErrMissingRecipient = errors.New("missing_recipient")
	ErrMissingContent   = errors.New("missing_content")
)
