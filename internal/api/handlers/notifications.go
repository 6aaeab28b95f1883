package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/ticket-monitor/internal/store"
	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// NotificationLister reads notification history.
type NotificationLister interface {
	ListNotifications(ctx context.Context, q *store.NotificationQuery) ([]domain.NotificationRecord, int, error)
}

// NotificationsHandler handles notification history endpoints.
type NotificationsHandler struct {
	history NotificationLister
}

// NewNotificationsHandler creates a NotificationsHandler.
func NewNotificationsHandler(h NotificationLister) *NotificationsHandler {
	return &NotificationsHandler{history: h}
}

// ListNotificationsInput filters the history.
type ListNotificationsInput struct {
	Target string    `query:"target" doc:"Filter by target name"`
	Vendor string    `query:"vendor" doc:"Filter by vendor"             enum:"livelab,maoyan,"`
	Kind   string    `query:"kind"   doc:"Filter by notification kind"  enum:"availability,reservation,"`
	Since  time.Time `query:"since"  doc:"Only records sent at or after this time (RFC 3339)"`
	Limit  int       `query:"limit"  doc:"Number of results (default 50)" minimum:"0" maximum:"500"`
	Offset int       `query:"offset" doc:"Pagination offset"              minimum:"0"`
}

// ListNotificationsOutput is the response for GET /api/v1/notifications.
type ListNotificationsOutput struct {
	Body struct {
		Notifications []domain.NotificationRecord `json:"notifications"`
		Total         int                         `json:"total"`
		Limit         int                         `json:"limit"`
		Offset        int                         `json:"offset"`
	}
}

// ListNotifications returns sent notifications, newest first.
func (h *NotificationsHandler) ListNotifications(
	ctx context.Context,
	in *ListNotificationsInput,
) (*ListNotificationsOutput, error) {
	q := &store.NotificationQuery{
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	if in.Target != "" {
		q.Target = &in.Target
	}
	if in.Vendor != "" {
		q.Vendor = &in.Vendor
	}
	if in.Kind != "" {
		q.Kind = &in.Kind
	}
	if !in.Since.IsZero() {
		q.Since = &in.Since
	}

	records, total, err := h.history.ListNotifications(ctx, q)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list notifications")
	}

	limit := in.Limit
	if limit <= 0 {
		limit = 50
	}

	out := &ListNotificationsOutput{}
	out.Body.Notifications = records
	if out.Body.Notifications == nil {
		out.Body.Notifications = []domain.NotificationRecord{}
	}
	out.Body.Total = total
	out.Body.Limit = limit
	out.Body.Offset = in.Offset
	return out, nil
}

// RegisterNotificationRoutes registers history routes on the Huma API.
func RegisterNotificationRoutes(api huma.API, h *NotificationsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications",
		Summary:     "List notifications",
		Description: "Returns sent notifications, newest first, with optional filters.",
		Tags:        []string{"notifications"},
	}, h.ListNotifications)
}
