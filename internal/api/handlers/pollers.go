package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domain "github.com/donaldgifford/ticket-monitor/pkg/types"
)

// PollerStatusProvider exposes poller snapshots.
type PollerStatusProvider interface {
	Status() []domain.PollerState
}

// PollersHandler handles poller status endpoints.
type PollersHandler struct {
	pollers PollerStatusProvider
}

// NewPollersHandler creates a PollersHandler.
func NewPollersHandler(p PollerStatusProvider) *PollersHandler {
	return &PollersHandler{pollers: p}
}

// ListPollersOutput is the response for GET /api/v1/pollers.
type ListPollersOutput struct {
	Body struct {
		Pollers []domain.PollerState `json:"pollers"`
		Total   int                  `json:"total"`
		Alive   int                  `json:"alive"`
	}
}

// GetPollerInput selects one poller by target name.
type GetPollerInput struct {
	Target string `path:"target" doc:"Target name"`
}

// GetPollerOutput is the response for GET /api/v1/pollers/{target}.
type GetPollerOutput struct {
	Body domain.PollerState
}

// ListPollers returns every poller in configuration order.
func (h *PollersHandler) ListPollers(_ context.Context, _ *struct{}) (*ListPollersOutput, error) {
	states := h.pollers.Status()

	out := &ListPollersOutput{}
	out.Body.Pollers = states
	out.Body.Total = len(states)
	for i := range states {
		if states[i].Alive {
			out.Body.Alive++
		}
	}
	return out, nil
}

// GetPoller returns one poller's state.
func (h *PollersHandler) GetPoller(_ context.Context, in *GetPollerInput) (*GetPollerOutput, error) {
	for _, st := range h.pollers.Status() {
		if st.Target == in.Target {
			return &GetPollerOutput{Body: st}, nil
		}
	}
	return nil, huma.Error404NotFound("no poller for target " + in.Target)
}

// RegisterPollerRoutes registers poller routes on the Huma API.
func RegisterPollerRoutes(api huma.API, h *PollersHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "list-pollers",
		Method:      http.MethodGet,
		Path:        "/api/v1/pollers",
		Summary:     "List pollers",
		Description: "Returns the state of every poller in configuration order.",
		Tags:        []string{"pollers"},
	}, h.ListPollers)

	huma.Register(api, huma.Operation{
		OperationID: "get-poller",
		Method:      http.MethodGet,
		Path:        "/api/v1/pollers/{target}",
		Summary:     "Get poller",
		Tags:        []string{"pollers"},
	}, h.GetPoller)
}
