package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/miraview/internal/observability"
	"github.com/jmylchreest/miraview/internal/service"
)

// TunerProvider fetches live tuner state.
type TunerProvider interface {
	Tuners(ctx context.Context) (*service.TunerStatus, error)
}

// TunerHandler handles tuner status endpoints.
type TunerHandler struct {
	tuners TunerProvider
}

// NewTunerHandler creates a new tuner handler.
func NewTunerHandler(tuners TunerProvider) *TunerHandler {
	return &TunerHandler{tuners: tuners}
}

// Register registers the tuner routes with the API.
func (h *TunerHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listTuners",
		Method:      http.MethodGet,
		Path:        "/api/v1/tuners",
		Summary:     "List tuners",
		Description: "Returns the current state of every mirakc tuner and the mirakc version",
		Tags:        []string{"Tuners"},
	}, h.ListTuners)
}

// ListTunersInput is the input for listing tuners.
type ListTunersInput struct{}

// ListTunersOutput is the output for listing tuners.
type ListTunersOutput struct {
	Body TunerListResponse
}

// ListTuners fetches tuner state from mirakc.
func (h *TunerHandler) ListTuners(ctx context.Context, _ *ListTunersInput) (*ListTunersOutput, error) {
	st, err := h.tuners.Tuners(ctx)
	if err != nil {
		observability.WithError(observability.LoggerFromContext(ctx), err).WarnContext(ctx, "fetching tuners failed")
		return nil, huma.Error502BadGateway("mirakc unavailable", err)
	}
	return &ListTunersOutput{Body: NewTunerListResponse(st)}, nil
}
