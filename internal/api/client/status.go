package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// PollerList is the response of GET /api/v1/pollers.
type PollerList struct {
	Pollers []domain.PollerState `json:"pollers"`
	Total   int                  `json:"total"`
	Alive   int                  `json:"alive"`
}

// NotificationPage is the response of GET /api/v1/notifications.
type NotificationPage struct {
	Notifications []domain.NotificationRecord `json:"notifications"`
	Total         int                         `json:"total"`
	Limit         int                         `json:"limit"`
	Offset        int                         `json:"offset"`
}

// NotificationFilter narrows ListNotifications. Zero fields are omitted.
type NotificationFilter struct {
	Target string
	Vendor domain.Vendor
	Kind   domain.NotificationKind
	Since  time.Time
	Limit  int
	Offset int
}

func (f *NotificationFilter) query() string {
	v := url.Values{}
	if f.Target != "" {
		v.Set("target", f.Target)
	}
	if f.Vendor != "" {
		v.Set("vendor", string(f.Vendor))
	}
	if f.Kind != "" {
		v.Set("kind", string(f.Kind))
	}
	if !f.Since.IsZero() {
		v.Set("since", f.Since.UTC().Format(time.RFC3339))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		v.Set("offset", strconv.Itoa(f.Offset))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// ListPollers returns the state of every running poller.
func (c *Client) ListPollers(ctx context.Context) (*PollerList, error) {
	var out PollerList
	if err := c.get(ctx, "/api/v1/pollers", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPoller returns the state of the poller watching target.
func (c *Client) GetPoller(ctx context.Context, target string) (*domain.PollerState, error) {
	var out domain.PollerState
	if err := c.get(ctx, "/api/v1/pollers/"+url.PathEscape(target), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListNotifications returns one page of the notification history.
func (c *Client) ListNotifications(ctx context.Context, f NotificationFilter) (*NotificationPage, error) {
	var out NotificationPage
	if err := c.get(ctx, "/api/v1/notifications"+f.query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready reports the /readyz status string. A 503 is not an error: the
// returned status says why the monitor is not ready.
func (c *Client) Ready(ctx context.Context) (bool, string, error) {
	var body struct {
		Status string `json:"status"`
	}
	err := c.get(ctx, "/readyz", &body)
	if err == nil {
		return true, body.Status, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
		if jerr := json.Unmarshal([]byte(apiErr.Body), &body); jerr == nil && body.Status != "" {
			return false, body.Status, nil
		}
		return false, "unavailable", nil
	}
	return false, "", err
}
