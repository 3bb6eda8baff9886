package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/miraview/internal/broadcastday"
	"github.com/jmylchreest/miraview/internal/observability"
	"github.com/jmylchreest/miraview/internal/service"
)

// GuideProvider is the guide data the handler serves.
type GuideProvider interface {
	Now() time.Time
	Days(now time.Time) []broadcastday.Key
	Day(key broadcastday.Key, now time.Time) (*service.DayView, error)
	Program(id int64) (*service.ProgramPair, error)
	Refresh(ctx context.Context) error
	Status() service.Status
}

// GuideHandler handles program guide endpoints.
type GuideHandler struct {
	guide GuideProvider
}

// NewGuideHandler creates a new guide handler.
func NewGuideHandler(guide GuideProvider) *GuideHandler {
	return &GuideHandler{guide: guide}
}

// Register registers the guide routes with the API.
func (h *GuideHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listGuideDays",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/days",
		Summary:     "List broadcast days",
		Description: "Returns the broadcast days with at least one current program, ascending",
		Tags:        []string{"Guide"},
	}, h.ListDays)

	huma.Register(api, huma.Operation{
		OperationID: "getGuideDay",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/days/{day}",
		Summary:     "Get broadcast day schedule",
		Description: "Returns every channel airing on the day with a gap-free slot sequence",
		Tags:        []string{"Guide"},
	}, h.GetDay)

	huma.Register(api, huma.Operation{
		OperationID: "getGuideProgram",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/programs/{id}",
		Summary:     "Get program",
		Description: "Returns a program with its service and stream URL",
		Tags:        []string{"Guide"},
	}, h.GetProgram)

	huma.Register(api, huma.Operation{
		OperationID:   "refreshGuide",
		Method:        http.MethodPost,
		Path:          "/api/v1/guide/refresh",
		Summary:       "Refresh guide",
		Description:   "Fetches programs and services from mirakc now",
		Tags:          []string{"Guide"},
		DefaultStatus: http.StatusOK,
	}, h.Refresh)
}

// ListDaysInput is the input for listing broadcast days.
type ListDaysInput struct{}

// ListDaysOutput is the output for listing broadcast days.
type ListDaysOutput struct {
	Body struct {
		Today broadcastday.Key `json:"today"`
		Days  []DayResponse    `json:"days"`
	}
}

// ListDays returns the broadcast days present in the guide.
func (h *GuideHandler) ListDays(_ context.Context, _ *ListDaysInput) (*ListDaysOutput, error) {
	now := h.guide.Now()
	today := broadcastday.Today(now)
	keys := h.guide.Days(now)

	out := &ListDaysOutput{}
	out.Body.Today = today
	out.Body.Days = make([]DayResponse, 0, len(keys))
	for _, k := range keys {
		out.Body.Days = append(out.Body.Days, NewDayResponse(k, today))
	}
	return out, nil
}

// GetDayInput is the input for a single broadcast day.
type GetDayInput struct {
	Day string `path:"day" doc:"Epoch milliseconds of local midnight, or YYYY-MM-DD" example:"2024-05-15"`
}

// GetDayOutput is the output for a single broadcast day.
type GetDayOutput struct {
	Body DayScheduleResponse
}

// GetDay returns the channel schedules of one broadcast day.
func (h *GuideHandler) GetDay(_ context.Context, input *GetDayInput) (*GetDayOutput, error) {
	key, err := broadcastday.ParseKey(input.Day)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid broadcast day", err)
	}

	now := h.guide.Now()
	view, err := h.guide.Day(key, now)
	if err != nil {
		if errors.Is(err, service.ErrDayNotFound) {
			return nil, huma.Error404NotFound("no programs on " + key.String())
		}
		return nil, huma.Error500InternalServerError("failed to build day", err)
	}

	channels := view.Channels
	if channels == nil {
		channels = []service.ChannelView{}
	}
	return &GetDayOutput{Body: DayScheduleResponse{
		DayResponse: NewDayResponse(key, broadcastday.Today(now)),
		Channels:    channels,
	}}, nil
}

// GetProgramInput is the input for a single program.
type GetProgramInput struct {
	ID int64 `path:"id" doc:"mirakc program id"`
}

// GetProgramOutput is the output for a single program.
type GetProgramOutput struct {
	Body service.ProgramPair
}

// GetProgram returns a program with its service.
func (h *GuideHandler) GetProgram(_ context.Context, input *GetProgramInput) (*GetProgramOutput, error) {
	pair, err := h.guide.Program(input.ID)
	if err != nil {
		if errors.Is(err, service.ErrProgramNotFound) {
			return nil, huma.Error404NotFound("program not found")
		}
		return nil, huma.Error500InternalServerError("failed to look up program", err)
	}
	return &GetProgramOutput{Body: *pair}, nil
}

// RefreshInput is the input for a manual refresh.
type RefreshInput struct{}

// RefreshOutput is the output for a manual refresh.
type RefreshOutput struct {
	Body RefreshResponse
}

// Refresh fetches the guide from mirakc. The previous guide stays in place
// when mirakc cannot be reached.
func (h *GuideHandler) Refresh(ctx context.Context, _ *RefreshInput) (*RefreshOutput, error) {
	if err := h.guide.Refresh(ctx); err != nil {
		observability.WithError(observability.LoggerFromContext(ctx), err).WarnContext(ctx, "manual refresh failed")
		return nil, huma.Error502BadGateway("mirakc unavailable", err)
	}

	st := h.guide.Status()
	return &RefreshOutput{Body: RefreshResponse{
		ProgramCount: st.ProgramCount,
		ServiceCount: st.ServiceCount,
		LastRefresh:  st.LastRefresh,
		Days:         len(h.guide.Days(h.guide.Now())),
	}}, nil
}
