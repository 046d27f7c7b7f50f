// Package peer calls the check endpoint of a linked remote installation.
package peer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TremiDkhar/sitelink/internal/domain"
	"github.com/TremiDkhar/sitelink/internal/logger"
	"github.com/TremiDkhar/sitelink/internal/utils"
)

// CheckPath is the check endpoint, relative to the API prefix.
const CheckPath = "/sites/site_link_check"

const maxResponseBytes = 64 << 10

var (
	// ErrMalformedRequest is returned when the peer rejects the request shape.
	ErrMalformedRequest = errors.New("peer rejected request as malformed")
	// ErrUnexpectedResponse covers non-2xx statuses and non-boolean bodies.
	ErrUnexpectedResponse = errors.New("unexpected response from peer")
)

// CheckRequest is the body posted to a peer's check endpoint.
type CheckRequest struct {
	TransferToken string `json:"transfer_token"`
}

// Client asks remote installations whether they recognise a transfer token.
type Client struct {
	http      *http.Client
	apiPrefix string
	scheme    string
	logger    logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (TLS config, transport, timeout).
func WithHTTPClient(c *http.Client) Option { return func(pc *Client) { pc.http = c } }

// WithScheme overrides the "https" scheme used to reach peers.
func WithScheme(scheme string) Option { return func(pc *Client) { pc.scheme = scheme } }

// NewClient creates a peer client. apiPrefix is prepended to CheckPath.
func NewClient(apiPrefix string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: timeout},
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
		scheme:    "https",
		logger:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckURL returns the check endpoint of remoteSite.
func (c *Client) CheckURL(remoteSite string) string {
	return c.scheme + "://" + domain.BareHost(remoteSite) + c.apiPrefix + CheckPath
}

// Check posts token to remoteSite and returns its verdict.
func (c *Client) Check(ctx context.Context, remoteSite, token string) (bool, error) {
	body, err := json.Marshal(CheckRequest{TransferToken: token})
	if err != nil {
		return false, err
	}

	url := c.CheckURL(remoteSite)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("check request to %s failed: %w", remoteSite, err)
	}
	defer utils.Close(resp.Body)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, fmt.Errorf("failed to read check response: %w", err)
	}

	c.logger.Debug("peer check",
		logger.String("remote", remoteSite),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return false, ErrMalformedRequest
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	var linked bool
	if err := json.Unmarshal(bytes.TrimSpace(raw), &linked); err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	return linked, nil
}
