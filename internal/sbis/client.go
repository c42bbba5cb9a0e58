package sbis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ClientConfig carries the data-endpoint settings.
type ClientConfig struct {
	SearchURL string
	Timeout   time.Duration
}

// Client fetches tender records through the authenticated GetPurchase call.
// It accepts both numeric tender IDs and tender number strings; the vendor
// takes either in the same request field.
type Client struct {
	cfg     ClientConfig
	session *SessionCache
	client  *http.Client
}

func NewClient(cfg ClientConfig, session *SessionCache) *Client {
	return &Client{
		cfg:     cfg,
		session: session,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type searchRequest struct {
	PurchaseID string `json:"purchaseId"`
}

// Fetch retrieves the full record for one tender. A rejected session token is
// invalidated and the call retried once with a freshly acquired token.
func (c *Client) Fetch(ctx context.Context, identifier string) (*Record, error) {
	record, err := c.fetch(ctx, identifier)
	if _, unauthorized := err.(*ErrAuth); unauthorized {
		zap.S().Named("sbis").Warnf("session rejected for tender %s, refreshing", identifier)
		c.session.Invalidate()
		return c.fetch(ctx, identifier)
	}
	return record, err
}

func (c *Client) fetch(ctx context.Context, identifier string) (*Record, error) {
	sid, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(searchRequest{PurchaseID: identifier})
	if err != nil {
		return nil, NewErrTransport(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SearchURL, bytes.NewReader(body))
	if err != nil {
		return nil, NewErrTransport(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", "sid="+sid)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewErrTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewErrAuth(fmt.Sprintf("token rejected with status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewErrNotFound(identifier)
	case resp.StatusCode != http.StatusOK:
		return nil, NewErrTransportStatus(resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewErrTransport(err)
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, NewErrMalformedRecord(fmt.Sprintf("decoding response: %v", err))
	}
	record.Raw = raw

	if len(record.Result.Tenders) == 0 {
		return nil, NewErrNotFound(identifier)
	}

	return &record, nil
}
