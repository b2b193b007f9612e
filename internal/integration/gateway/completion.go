package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	credentialdomain "github.com/smallbiznis/staydesk/internal/credential/domain"
	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
)

const (
	CompletionProvider = "completion"
	defaultMaxTokens   = 512
)

type CompletionFactory struct {
	httpClient *http.Client
}

func NewCompletionFactory() *CompletionFactory {
	return &CompletionFactory{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

func NewCompletionFactoryWithClient(client *http.Client) *CompletionFactory {
	return &CompletionFactory{httpClient: client}
}

func (f *CompletionFactory) Integration() credentialdomain.Integration {
	return credentialdomain.IntegrationAI
}

func (f *CompletionFactory) Provider() string { return CompletionProvider }

func (f *CompletionFactory) New(bundle credentialdomain.Bundle) (integrationdomain.Client, error) {
	if bundle.Integration != credentialdomain.IntegrationAI {
		return nil, integrationdomain.ErrInvalidBundle
	}
	return &CompletionClient{
		http:    f.httpClient,
		baseURL: strings.TrimSpace(bundle.BaseURL),
		apiKey:  strings.TrimSpace(bundle.Secret(credentialdomain.SecretAPIKey)),
		model:   strings.TrimSpace(bundle.Model),
	}, nil
}

type CompletionClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type completionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *CompletionClient) Name() string { return CompletionProvider }

func (c *CompletionClient) Capabilities() []integrationdomain.Capability {
	return []integrationdomain.Capability{integrationdomain.CapabilityComplete}
}

func (c *CompletionClient) Ready() bool {
	return c.baseURL != "" && c.apiKey != ""
}

func (c *CompletionClient) Complete(ctx context.Context, req integrationdomain.CompletionRequest) (*integrationdomain.Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, integrationdomain.ErrInvalidRequest
	}
	if !c.Ready() {
		return nil, integrationdomain.ErrClientNotReady
	}
	endpoint, err := joinURL(c.baseURL, "/v1/chat/completions")
	if err != nil {
		return nil, err
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	messages := make([]chatMessage, 0, 2)
	if system := strings.TrimSpace(req.System); system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var out completionResponse
	body := completionRequest{Model: c.model, Messages: messages, MaxTokens: maxTokens}
	if err := postJSON(ctx, c.http, endpoint, bearer(c.apiKey), "", body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, integrationdomain.ErrUpstream
	}
	return &integrationdomain.Completion{
		ID:         out.ID,
		Text:       out.Choices[0].Message.Content,
		Model:      out.Model,
		TokensUsed: out.Usage.TotalTokens,
	}, nil
}
