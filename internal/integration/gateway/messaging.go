package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
)

const MessagingProvider = "gateway"

type MessagingFactory struct {
	httpClient *http.Client
}

func NewMessagingFactory() *MessagingFactory {
	return &MessagingFactory{httpClient: &http.Client{Timeout: defaultTimeout}}
}

// NewMessagingFactoryWithClient is used by tests to point at an httptest server.
func NewMessagingFactoryWithClient(client *http.Client) *MessagingFactory {
	return &MessagingFactory{httpClient: client}
}

func (f *MessagingFactory) Integration() credentialdomain.Integration {
	return credentialdomain.IntegrationMessaging
}

func (f *MessagingFactory) Provider() string { return MessagingProvider }

func (f *MessagingFactory) New(bundle credentialdomain.Bundle) (integrationdomain.Client, error) {
	if bundle.Integration != credentialdomain.IntegrationMessaging {
		return nil, integrationdomain.ErrInvalidBundle
	}
	return &MessagingClient{
		http:       f.httpClient,
		baseURL:    strings.TrimSpace(bundle.BaseURL),
		accountSID: strings.TrimSpace(bundle.Secret(credentialdomain.SecretAccountSID)),
		authToken:  strings.TrimSpace(bundle.Secret(credentialdomain.SecretAuthToken)),
		fromNumber: strings.TrimSpace(bundle.Secret(credentialdomain.SecretFromNumber)),
		shared:     bundle.IsShared,
	}, nil
}

type MessagingClient struct {
	http       *http.Client
	baseURL    string
	accountSID string
	authToken  string
	fromNumber string
	shared     bool
}

type messageRequest struct {
	From      string            `json:"from"`
	To        string            `json:"to"`
	Channel   string            `json:"channel"`
	Body      string            `json:"body,omitempty"`
	Template  string            `json:"template,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}

type messageResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *MessagingClient) Name() string { return MessagingProvider }

func (c *MessagingClient) Capabilities() []integrationdomain.Capability {
	return []integrationdomain.Capability{
		integrationdomain.CapabilitySendMessage,
		integrationdomain.CapabilitySendTemplate,
	}
}

func (c *MessagingClient) Ready() bool {
	return c.baseURL != "" && c.accountSID != "" && c.authToken != "" && c.fromNumber != ""
}

func (c *MessagingClient) SendMessage(ctx context.Context, msg integrationdomain.Message) (*integrationdomain.Receipt, error) {
	if strings.TrimSpace(msg.To) == "" || strings.TrimSpace(msg.Body) == "" {
		return nil, integrationdomain.ErrInvalidRequest
	}
	return c.send(ctx, messageRequest{
		From:    c.fromNumber,
		To:      strings.TrimSpace(msg.To),
		Channel: string(msg.Channel),
		Body:    msg.Body,
	})
}

func (c *MessagingClient) SendTemplate(ctx context.Context, msg integrationdomain.TemplateMessage) (*integrationdomain.Receipt, error) {
	if strings.TrimSpace(msg.To) == "" || strings.TrimSpace(msg.Template) == "" {
		return nil, integrationdomain.ErrInvalidRequest
	}
	return c.send(ctx, messageRequest{
		From:      c.fromNumber,
		To:        strings.TrimSpace(msg.To),
		Channel:   string(msg.Channel),
		Template:  msg.Template,
		Variables: msg.Variables,
	})
}

func (c *MessagingClient) send(ctx context.Context, body messageRequest) (*integrationdomain.Receipt, error) {
	if !c.Ready() {
		return nil, integrationdomain.ErrClientNotReady
	}
	endpoint, err := joinURL(c.baseURL, "/v1/accounts/"+c.accountSID+"/messages")
	if err != nil {
		return nil, err
	}

	var out messageResponse
	if err := postJSON(ctx, c.http, endpoint, basic(c.accountSID, c.authToken), uuid.NewString(), body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, integrationdomain.ErrUpstream
	}
	return &integrationdomain.Receipt{
		ID:       out.ID,
		Status:   out.Status,
		Provider: MessagingProvider,
		Shared:   c.shared,
	}, nil
}
