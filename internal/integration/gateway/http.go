// Package gateway holds the JSON-over-HTTP messaging and completion clients.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	integrationdomain "github.com/smallbiznis/staydesk/internal/integration/domain"
)

const defaultTimeout = 12 * time.Second

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type authFunc func(req *http.Request)

func bearer(token string) authFunc {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func basic(user, pass string) authFunc {
	return func(req *http.Request) {
		req.SetBasicAuth(user, pass)
	}
}

func postJSON(
	ctx context.Context,
	client *http.Client,
	endpoint string,
	auth authFunc,
	idempotencyKey string,
	body any,
	out any,
) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if auth != nil {
		auth(req)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integrationdomain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var upstream errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&upstream); err != nil {
			return fmt.Errorf("%w: status %d", integrationdomain.ErrUpstream, resp.StatusCode)
		}
		message := strings.TrimSpace(upstream.Error.Message)
		if message == "" {
			message = "request_failed"
		}
		return fmt.Errorf("%w: %s", integrationdomain.ErrUpstream, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", integrationdomain.ErrUpstream, err)
	}
	return nil
}

func joinURL(base, path string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", errors.New("base_url_required")
	}
	return base + path, nil
}
