package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"clinic/internal/availability"
	"clinic/internal/database"
	"clinic/internal/export"
	"clinic/internal/metrics"
	"clinic/internal/schedule"
	"clinic/internal/service"
)

// ActorHeader carries the id of the user performing an edit.
const ActorHeader = "X-Actor-ID"

// ScheduleRequest is the body of PUT schedule and POST validate. Rules may be
// flat records or grouped rules.
type ScheduleRequest struct {
	Rules      json.RawMessage `json:"rules"`
	Exceptions json.RawMessage `json:"exceptions"`
	Config     schedule.Config `json:"config"`
	Revision   int64           `json:"revision"`
}

// AvailabilityResponse is returned by the availability endpoints.
type AvailabilityResponse struct {
	*service.AvailabilityResult
	TotalHours string                  `json:"totalHours"`
	Slots      []availability.SlotInfo `json:"slots,omitempty"`
}

type validationResponse struct {
	Valid  bool                      `json:"valid"`
	Errors schedule.ValidationErrors `json:"errors"`
}

// handleAvailability returns bookable windows of one professional.
// GET /api/v1/professionals/{id}/availability?from=YYYY-MM-DD&to=YYYY-MM-DD[&slot_minutes=30&step_minutes=15]
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability")

	id, ok := s.professionalID(w, r)
	if !ok {
		return
	}
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slot, step, err := parseSlotParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Availability(r.Context(), id, from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.availabilityResponse(res, slot, step))
}

// handleAllAvailability returns bookable windows of every professional.
// GET /api/v1/availability?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleAllAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_all")

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	slot, step, err := parseSlotParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := s.svc.ResolveAll(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out := make(map[string]AvailabilityResponse, len(results))
	for id, res := range results {
		out[id.String()] = s.availabilityResponse(res, slot, step)
	}
	writeJSON(w, http.StatusOK, map[string]any{"professionals": out})
}

// handleExport returns availability of every professional as an xlsx workbook.
// GET /api/v1/availability/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_export")

	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := s.svc.ResolveAll(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	rows := make([]export.Professional, 0, len(results))
	for id, res := range results {
		rows = append(rows, export.Professional{
			ID:       id,
			TimeZone: res.TimeZone,
			Windows:  res.Windows,
			Blocked:  res.Blocked,
		})
	}
	wb := export.NewWorkbook()
	defer wb.Close()
	if err := wb.Write(rows); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="availability_%s_%s.xlsx"`, from, to))
	if err := wb.Save(w); err != nil {
		s.logger.Error().Err(err).Msg("write workbook")
	}
}

// handleGetSchedule returns the editable (grouped) schedule.
// GET /api/v1/professionals/{id}/schedule
func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_get")

	id, ok := s.professionalID(w, r)
	if !ok {
		return
	}
	e, err := s.svc.Editable(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handlePutSchedule replaces a schedule.
// PUT /api/v1/professionals/{id}/schedule with X-Actor-ID
func (s *HTTPServer) handlePutSchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_put")

	id, ok := s.professionalID(w, r)
	if !ok {
		return
	}
	actor, err := uuid.Parse(r.Header.Get(ActorHeader))
	if err != nil || actor == uuid.Nil {
		writeError(w, http.StatusUnauthorized, ActorHeader+" header with a user id is required")
		return
	}

	req, rules, exceptions, ok := decodeScheduleRequest(w, r)
	if !ok {
		return
	}

	e, err := s.svc.Update(r.Context(), service.UpdateRequest{
		ProfessionalID: id,
		Rules:          rules,
		Exceptions:     exceptions,
		Config:         req.Config,
		Revision:       req.Revision,
		ActorID:        actor,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleValidate checks a schedule without storing it.
// POST /api/v1/schedules/validate
func (s *HTTPServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_validate")

	req, rules, exceptions, ok := decodeScheduleRequest(w, r)
	if !ok {
		return
	}
	errs := s.svc.Validate(rules, exceptions, req.Config)
	if errs == nil {
		errs = schedule.ValidationErrors{}
	}
	writeJSON(w, http.StatusOK, validationResponse{Valid: len(errs) == 0, Errors: errs})
}

func decodeScheduleRequest(w http.ResponseWriter, r *http.Request) (*ScheduleRequest, schedule.Shape, []schedule.ExceptionPeriod, bool) {
	var req ScheduleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, nil, nil, false
	}

	rules, err := schedule.DecodeRules(req.Rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rules: "+err.Error())
		return nil, nil, nil, false
	}
	exceptions, err := schedule.DecodeExceptions(req.Exceptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "exceptions: "+err.Error())
		return nil, nil, nil, false
	}
	return &req, rules, exceptions, true
}

func (s *HTTPServer) availabilityResponse(res *service.AvailabilityResult, slot, step time.Duration) AvailabilityResponse {
	resp := AvailabilityResponse{
		AvailabilityResult: res,
		TotalHours:         availability.FormatDuration(availability.TotalDuration(res.Windows)),
	}
	if slot > 0 {
		resp.Slots = availability.ToSlotInfo(availability.SplitWindows(res.Windows, slot, step, s.now()))
	}
	return resp
}

func (s *HTTPServer) professionalID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid professional id")
		return uuid.Nil, false
	}
	return id, true
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	var verrs schedule.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Valid: false, Errors: verrs})
	case errors.Is(err, service.ErrScheduleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrRangeTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrActorRequired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, database.ErrRevisionConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseRange(r *http.Request) (from, to civil.Date, err error) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		return from, to, errors.New("from and to are required")
	}
	if from, err = civil.ParseDate(q.Get("from")); err != nil {
		return from, to, errors.New("invalid from format; expected YYYY-MM-DD")
	}
	if to, err = civil.ParseDate(q.Get("to")); err != nil {
		return from, to, errors.New("invalid to format; expected YYYY-MM-DD")
	}
	return from, to, nil
}

func parseSlotParams(r *http.Request) (slot, step time.Duration, err error) {
	q := r.URL.Query()
	if v := q.Get("slot_minutes"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 || n > 24*60 {
			return 0, 0, errors.New("slot_minutes must be between 1 and 1440")
		}
		slot = time.Duration(n) * time.Minute
	}
	if v := q.Get("step_minutes"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n <= 0 || n > 24*60 {
			return 0, 0, errors.New("step_minutes must be between 1 and 1440")
		}
		step = time.Duration(n) * time.Minute
	}
	return slot, step, nil
}
