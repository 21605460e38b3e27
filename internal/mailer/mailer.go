// Package mailer sends transactional email through the Resend HTTP API.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/curaious/workboard/internal/config"
	"github.com/curaious/workboard/internal/perrors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const notConfigured = "email service is not configured"

type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Result is the outcome of a send. A soft failure (e.g. missing API key) is
// reported here with Success false instead of as an error.
type Result struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Client struct {
	apiKey     string
	endpoint   string
	from       string
	httpClient *http.Client
}

func New(conf *config.Config) *Client {
	return NewClient(conf.RESEND_API_KEY, conf.RESEND_ENDPOINT, conf.EMAIL_FROM, &http.Client{
		Timeout:   15 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
}

func NewClient(apiKey, endpoint, from string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{apiKey: apiKey, endpoint: endpoint, from: from, httpClient: httpClient}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type sendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

// Send delivers msg. Without an API key it logs a warning and returns a failed
// Result; provider failures are returned as ExternalService errors.
func (c *Client) Send(ctx context.Context, msg Message) (*Result, error) {
	if !c.Configured() {
		slog.WarnContext(ctx, "RESEND_API_KEY is not set, skipping email", slog.String("subject", msg.Subject))
		return &Result{Success: false, Error: notConfigured}, nil
	}

	if len(msg.To) == 0 {
		return nil, perrors.NewErrInvalidRequest("Email has no recipients", errors.New("no recipients"))
	}

	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to encode email", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, perrors.NewErrInternalServerError("Failed to build email request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, perrors.NewErrExternalService("Failed to send email", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, perrors.NewErrExternalService("Failed to read email provider response", err)
	}

	var out sendResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := out.Message
		if reason == "" {
			reason = string(bytes.TrimSpace(body))
		}
		return nil, perrors.NewErrExternalService("Failed to send email", fmt.Errorf("resend returned %d: %s", resp.StatusCode, reason))
	}

	slog.InfoContext(ctx, "Email sent", slog.String("id", out.ID), slog.Int("recipients", len(msg.To)))
	return &Result{Success: true, ID: out.ID}, nil
}
