package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/leadhub/apiserver/internal/services"
	"github.com/leadhub/apiserver/internal/store"
	"github.com/leadhub/apiserver/types"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// LeadHandler provides HTTP handlers for leads.
type LeadHandler struct {
	leadService   *services.LeadService
	exportService *services.ExportService
}

// NewLeadHandler constructs a handler with the provided services.
func NewLeadHandler(leadService *services.LeadService, exportService *services.ExportService) *LeadHandler {
	return &LeadHandler{
		leadService:   leadService,
		exportService: exportService,
	}
}

// LeadRouter registers lead routes on the given router. Every route sits
// behind the session gate.
func LeadRouter(r chi.Router, handler *LeadHandler, sessionGate func(http.Handler) http.Handler) {
	r.Use(sessionGate)

	r.Get("/", handler.ListLeads)
	r.Post("/", handler.CreateLead)
	r.Route("/export", func(r chi.Router) {
		r.Post("/", handler.ExportLeads)
		r.Get("/{exportName}", handler.DownloadExport)
		r.Delete("/{exportName}", handler.DeleteExport)
	})
	r.Route("/{leadID}", func(r chi.Router) {
		r.Get("/", handler.GetLead)
		r.Put("/", handler.UpdateLead)
		r.Delete("/", handler.DeleteLead)
	})
}

func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	page, limit, offset, err := parsePagination(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter, err := parseLeadFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	leads, total, err := h.leadService.List(r.Context(), ownerID, filter, offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeJSON(w, http.StatusOK, LeadListResponse{
		Data:       leads,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages(total, limit),
	})
}

func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseLeadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	lead, err := h.leadService.Get(r.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeJSON(w, http.StatusOK, lead)
}

func (h *LeadHandler) CreateLead(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	var payload LeadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid lead data")
		return
	}

	lead, err := leadFromCreatePayload(payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Owner always comes from the session, never from the payload.
	lead.OwnerID = ownerID

	created, err := h.leadService.Create(r.Context(), lead)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *LeadHandler) UpdateLead(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseLeadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Scoped re-fetch: another owner's lead is indistinguishable from a
	// nonexistent one.
	lead, err := h.leadService.Get(r.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	var payload LeadPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid lead data")
		return
	}

	if err := applyLeadPayload(&lead, payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.leadService.Update(r.Context(), lead)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *LeadHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	id, err := parseLeadID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.leadService.Delete(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LeadHandler) ExportLeads(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	if h.exportService == nil || !h.exportService.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "Export storage not configured")
		return
	}

	filter, err := parseLeadFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.exportService.Export(r.Context(), ownerID, filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server Error")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// DownloadExport streams a stored snapshot back as CSV.
func (h *LeadHandler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	if h.exportService == nil || !h.exportService.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "Export storage not configured")
		return
	}

	name := chi.URLParam(r, "exportName")
	reader, err := h.exportService.Open(r.Context(), ownerID, name)
	if err != nil {
		writeError(w, http.StatusNotFound, "Export not found")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = io.Copy(w, reader)
}

func (h *LeadHandler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	ownerID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized")
		return
	}

	if h.exportService == nil || !h.exportService.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "Export storage not configured")
		return
	}

	if err := h.exportService.Remove(r.Context(), ownerID, chi.URLParam(r, "exportName")); err != nil {
		writeError(w, http.StatusNotFound, "Export not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LeadListResponse is the pagination envelope for list queries.
type LeadListResponse struct {
	Data       []types.Lead `json:"data"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int          `json:"total"`
	TotalPages int          `json:"totalPages"`
}

// LeadPayload is the create/update body. Pointer fields distinguish
// absent from zero; Score, LeadValue and IsQualified are raw so numeric
// strings and booleans coerce the way the web client sends them.
type LeadPayload struct {
	FirstName      *string          `json:"firstName"`
	LastName       *string          `json:"lastName"`
	Email          *string          `json:"email"`
	Phone          *string          `json:"phone"`
	Company        *string          `json:"company"`
	City           *string          `json:"city"`
	State          *string          `json:"state"`
	Source         *string          `json:"source"`
	Status         *string          `json:"status"`
	Score          *json.RawMessage `json:"score"`
	LeadValue      *json.RawMessage `json:"leadValue"`
	LastActivityAt *string          `json:"lastActivityAt"`
	IsQualified    *json.RawMessage `json:"isQualified"`
}

// totalPages rounds up, with zero rows still reported as one page so the
// client never renders "page 0 of 0".
func totalPages(total, limit int) int {
	pages := (total + limit - 1) / limit
	if pages < 1 {
		return 1
	}
	return pages
}

func parsePagination(q url.Values) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, 0, errors.New("invalid page")
		}
		if page < 1 {
			page = 1
		}
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

// parseLeadFilter builds the typed filter specification from raw query
// parameters. Malformed numeric or date values are rejected rather than
// silently ignored.
func parseLeadFilter(q url.Values) (types.LeadFilter, error) {
	var filter types.LeadFilter

	filter.Email = strings.TrimSpace(q.Get("email"))
	filter.Company = strings.TrimSpace(q.Get("company"))
	filter.City = strings.TrimSpace(q.Get("city"))

	var err error
	if filter.Statuses, err = parseEnumList(q.Get("status"), types.ValidLeadStatus, "status"); err != nil {
		return types.LeadFilter{}, err
	}
	if filter.Sources, err = parseEnumList(q.Get("source"), types.ValidLeadSource, "source"); err != nil {
		return types.LeadFilter{}, err
	}

	if filter.ScoreMin, err = parseOptionalIntParam(q.Get("scoreMin"), "scoreMin"); err != nil {
		return types.LeadFilter{}, err
	}
	if filter.ScoreMax, err = parseOptionalIntParam(q.Get("scoreMax"), "scoreMax"); err != nil {
		return types.LeadFilter{}, err
	}
	if filter.LeadValueMin, err = parseOptionalFloatParam(q.Get("leadValueMin"), "leadValueMin"); err != nil {
		return types.LeadFilter{}, err
	}
	if filter.LeadValueMax, err = parseOptionalFloatParam(q.Get("leadValueMax"), "leadValueMax"); err != nil {
		return types.LeadFilter{}, err
	}

	if filter.CreatedFrom, err = parseOptionalTimeParam(q.Get("createdFrom"), "createdFrom"); err != nil {
		return types.LeadFilter{}, err
	}
	if filter.CreatedTo, err = parseOptionalTimeParam(q.Get("createdTo"), "createdTo"); err != nil {
		return types.LeadFilter{}, err
	}
	if filter.LastActivityFrom, err = parseOptionalTimeParam(q.Get("lastActivityFrom"), "lastActivityFrom"); err != nil {
		return types.LeadFilter{}, err
	}
	if filter.LastActivityTo, err = parseOptionalTimeParam(q.Get("lastActivityTo"), "lastActivityTo"); err != nil {
		return types.LeadFilter{}, err
	}

	// Only the literal true/false constrain; any other value means "any".
	switch strings.ToLower(strings.TrimSpace(q.Get("isQualified"))) {
	case "true":
		v := true
		filter.IsQualified = &v
	case "false":
		v := false
		filter.IsQualified = &v
	}

	return filter, nil
}

func parseEnumList(raw string, valid func(string) bool, name string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		if !valid(value) {
			return nil, errors.New("invalid " + name + " value: " + value)
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}

func parseOptionalIntParam(raw, name string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &value, nil
}

func parseOptionalFloatParam(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &value, nil
}

func parseOptionalTimeParam(raw, name string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := parseTimestamp(raw)
	if err != nil {
		return nil, errors.New("invalid " + name)
	}
	return &value, nil
}

// parseTimestamp accepts RFC 3339 or the date-only form the filter UI
// sends.
func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func parseLeadID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "leadID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid lead id")
	}
	return id, nil
}

func leadFromCreatePayload(payload LeadPayload) (types.Lead, error) {
	lead := types.Lead{
		Source: types.SourceOther,
		Status: types.StatusNew,
	}

	lead.FirstName = stringValue(payload.FirstName)
	lead.LastName = stringValue(payload.LastName)
	lead.Email = stringValue(payload.Email)
	if lead.FirstName == "" || lead.LastName == "" || lead.Email == "" {
		return types.Lead{}, errors.New("firstName, lastName and email are required")
	}

	lead.Phone = stringValue(payload.Phone)
	lead.Company = stringValue(payload.Company)
	lead.City = stringValue(payload.City)
	lead.State = stringValue(payload.State)

	if err := applyLeadPayloadEnums(&lead, payload); err != nil {
		return types.Lead{}, err
	}
	if err := applyLeadPayloadValues(&lead, payload); err != nil {
		return types.Lead{}, err
	}
	return lead, nil
}

// applyLeadPayload patches provided fields onto an existing lead. Absent
// fields stay untouched; the owner id never changes.
func applyLeadPayload(lead *types.Lead, payload LeadPayload) error {
	if payload.FirstName != nil {
		lead.FirstName = strings.TrimSpace(*payload.FirstName)
	}
	if payload.LastName != nil {
		lead.LastName = strings.TrimSpace(*payload.LastName)
	}
	if payload.Email != nil {
		lead.Email = strings.TrimSpace(*payload.Email)
	}
	if payload.Phone != nil {
		lead.Phone = strings.TrimSpace(*payload.Phone)
	}
	if payload.Company != nil {
		lead.Company = strings.TrimSpace(*payload.Company)
	}
	if payload.City != nil {
		lead.City = strings.TrimSpace(*payload.City)
	}
	if payload.State != nil {
		lead.State = strings.TrimSpace(*payload.State)
	}
	if err := applyLeadPayloadEnums(lead, payload); err != nil {
		return err
	}
	return applyLeadPayloadValues(lead, payload)
}

func applyLeadPayloadEnums(lead *types.Lead, payload LeadPayload) error {
	if payload.Source != nil {
		source := strings.TrimSpace(*payload.Source)
		if !types.ValidLeadSource(source) {
			return errors.New("invalid source")
		}
		lead.Source = source
	}
	if payload.Status != nil {
		status := strings.TrimSpace(*payload.Status)
		if !types.ValidLeadStatus(status) {
			return errors.New("invalid status")
		}
		lead.Status = status
	}
	return nil
}

func applyLeadPayloadValues(lead *types.Lead, payload LeadPayload) error {
	if payload.Score != nil {
		score, err := coerceInt(*payload.Score)
		if err != nil {
			return errors.New("invalid score")
		}
		lead.Score = score
	}
	if payload.LeadValue != nil {
		value, err := coerceFloat(*payload.LeadValue)
		if err != nil {
			return errors.New("invalid leadValue")
		}
		lead.LeadValue = value
	}
	if payload.IsQualified != nil {
		qualified, err := coerceBool(*payload.IsQualified)
		if err != nil {
			return errors.New("invalid isQualified")
		}
		lead.IsQualified = qualified
	}
	if payload.LastActivityAt != nil {
		raw := strings.TrimSpace(*payload.LastActivityAt)
		if raw == "" {
			// Explicit empty string clears a previously set value.
			lead.LastActivityAt = nil
			return nil
		}
		t, err := parseTimestamp(raw)
		if err != nil {
			return errors.New("invalid lastActivityAt")
		}
		lead.LastActivityAt = &t
	}
	return nil
}

// coerceInt accepts a JSON number or a numeric string.
func coerceInt(raw json.RawMessage) (int, error) {
	value, err := coerceFloat(raw)
	if err != nil {
		return 0, err
	}
	return int(value), nil
}

// coerceFloat accepts a JSON number or a numeric string.
func coerceFloat(raw json.RawMessage) (float64, error) {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, errors.New("not a number")
	}
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// coerceBool accepts a JSON boolean or a string, where only the literal
// "true" is truthy.
func coerceBool(raw json.RawMessage) (bool, error) {
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return false, errors.New("not a boolean")
	}
	return str == "true", nil
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
