package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	interaction "go-parley/internal/pkg/interaction/domain"
	"go-parley/internal/pkg/interaction/gateway/port"
)

// HTTPGateway implements the gateway port against a remote go-parley server.
// The engine runs client-side on top of this adapter; the bearer token
// identifies the actor, so the actorID arguments are informational here.
type HTTPGateway struct {
	base   *url.URL
	token  string
	client *http.Client
}

// NewHTTPGateway targets the server at baseURL with the actor's bearer token.
func NewHTTPGateway(baseURL, token string) (*HTTPGateway, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("http gateway: parse base url: %w", err)
	}
	return &HTTPGateway{
		base:   u,
		token:  token,
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

var _ port.Gateway = (*HTTPGateway)(nil)

func (g *HTTPGateway) ListByPerspective(ctx context.Context, _ string, kind interaction.Kind, perspective interaction.Perspective, includeHidden bool) ([]interaction.Interaction, error) {
	q := url.Values{
		"kind":           {string(kind)},
		"perspective":    {string(perspective)},
		"include_hidden": {strconv.FormatBool(includeHidden)},
	}
	var records []interaction.Interaction
	if err := g.do(ctx, http.MethodGet, "/api/v1/interactions?"+q.Encode(), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (g *HTTPGateway) Create(ctx context.Context, rec interaction.Interaction) (*interaction.Interaction, error) {
	body := map[string]any{
		"kind":            rec.Kind,
		"counterparty_id": rec.CounterpartyID,
		"target_id":       rec.TargetID,
		"message":         rec.Message,
		"expires_at":      rec.ExpiresAt,
	}
	var created interaction.Interaction
	if err := g.do(ctx, http.MethodPost, "/api/v1/interactions", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (g *HTTPGateway) Respond(ctx context.Context, _ string, id string, decision interaction.Status, note *string) (*interaction.Interaction, error) {
	body := map[string]any{"decision": decision, "note": note}
	var rec interaction.Interaction
	if err := g.do(ctx, http.MethodPost, "/api/v1/interactions/"+url.PathEscape(id)+"/respond", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *HTTPGateway) Withdraw(ctx context.Context, _ string, id string) (*interaction.Interaction, error) {
	var rec interaction.Interaction
	if err := g.do(ctx, http.MethodPost, "/api/v1/interactions/"+url.PathEscape(id)+"/withdraw", nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *HTTPGateway) SetHidden(ctx context.Context, _ string, kind interaction.Kind, ids []string, role interaction.Role, hidden bool) error {
	body := map[string]any{"kind": kind, "ids": ids, "role": role, "hidden": hidden}
	return g.do(ctx, http.MethodPut, "/api/v1/interactions/visibility", body, nil)
}

func (g *HTTPGateway) Ask(ctx context.Context, _ string, id, question string) (*interaction.Interaction, error) {
	var rec interaction.Interaction
	if err := g.do(ctx, http.MethodPost, "/api/v1/interactions/"+url.PathEscape(id)+"/questions", map[string]any{"question": question}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *HTTPGateway) Answer(ctx context.Context, _ string, id string, askedAt time.Time, answer string) (*interaction.Interaction, error) {
	body := map[string]any{"asked_at": askedAt, "answer": answer}
	var rec interaction.Interaction
	if err := g.do(ctx, http.MethodPost, "/api/v1/interactions/"+url.PathEscape(id)+"/answers", body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *HTTPGateway) MarkViewed(ctx context.Context, _ string, id string) (*interaction.Interaction, error) {
	var rec interaction.Interaction
	if err := g.do(ctx, http.MethodPost, "/api/v1/interactions/"+url.PathEscape(id)+"/viewed", nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body any, out any) error {
	ref, err := url.Parse(path)
	if err != nil {
		return fmt.Errorf("http gateway: %w", err)
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("http gateway: encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.base.ResolveReference(ref).String(), reader)
	if err != nil {
		return fmt.Errorf("http gateway: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("http gateway: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusErr(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("http gateway: decode response: %w", err)
	}
	return nil
}

func statusErr(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	detail := payload.Error
	if detail == "" {
		detail = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", port.ErrNotFound, detail)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", port.ErrForbidden, detail)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", interaction.ErrStaleState, detail)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", interaction.ErrValidation, detail)
	default:
		return fmt.Errorf("http gateway: unexpected status %d: %s", resp.StatusCode, detail)
	}
}
