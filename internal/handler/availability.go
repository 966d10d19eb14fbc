package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/field-reservation/internal/availability"
	"github.com/iliyamo/field-reservation/internal/cache"
	"github.com/iliyamo/field-reservation/internal/interval"
	"github.com/iliyamo/field-reservation/internal/repository"
)

// AvailabilityHandler exposes the guard's read operations over HTTP with
// read-through projection caching.  A store failure on these endpoints
// is surfaced as 503 so the client can distinguish "slot taken" from
// "could not verify availability right now".
type AvailabilityHandler struct {
	Guard  *availability.Guard
	Fields *repository.FieldRepo
	Cache  *cache.Store
	Prefix string
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(guard *availability.Guard, fields *repository.FieldRepo, store *cache.Store, prefix string) *AvailabilityHandler {
	if guard == nil || fields == nil || store == nil {
		panic("nil dependency passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Guard: guard, Fields: fields, Cache: store, Prefix: prefix}
}

type slotsResponse struct {
	FieldID   uint64              `json:"field_id"`
	BranchID  uint64              `json:"branch_id"`
	Date      string              `json:"date"`
	FreeSlots []interval.Interval `json:"free_slots"`
}

// GetFieldSlots handles GET /v1/fields/:id/slots?date=YYYY-MM-DD.  It
// returns the free intervals within the field's operating window.
func (h *AvailabilityHandler) GetFieldSlots(c echo.Context) error {
	fieldID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || fieldID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field id"})
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	ctx := c.Request().Context()
	field, err := h.Fields.GetByID(ctx, fieldID)
	if err != nil {
		if errors.Is(err, repository.ErrFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not verify availability"})
	}

	key := cache.AvailabilityKey(h.Prefix, field.BranchID, field.ID, date)
	var resp slotsResponse
	if h.Cache.Get(ctx, key, &resp) {
		return c.JSON(http.StatusOK, resp)
	}

	slots, err := h.Guard.AvailableSlots(ctx, fieldID, date)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not verify availability"})
	}
	resp = slotsResponse{FieldID: field.ID, BranchID: field.BranchID, Date: date.Format("2006-01-02"), FreeSlots: slots}
	if err := h.Cache.Set(ctx, key, resp); err != nil {
		c.Logger().Warnf("cache: store slots projection failed: %v", err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetOverview handles GET /v1/availability?date=YYYY-MM-DD.  It returns
// the hourly availability of every active field on that date.
func (h *AvailabilityHandler) GetOverview(c echo.Context) error {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	ctx := c.Request().Context()

	key := cache.OverviewKey(h.Prefix, date)
	var cached []availability.FieldAvailability
	if h.Cache.Get(ctx, key, &cached) {
		return c.JSON(http.StatusOK, echo.Map{"date": date.Format("2006-01-02"), "fields": cached})
	}

	overview, err := h.Guard.AllFieldsAvailability(ctx, date)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not verify availability"})
	}
	if err := h.Cache.Set(ctx, key, overview); err != nil {
		c.Logger().Warnf("cache: store overview projection failed: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": date.Format("2006-01-02"), "fields": overview})
}

// CheckWindow handles GET /v1/fields/:id/check?date=...&start=HH:MM&end=HH:MM.
// It answers whether the proposed window may currently be accepted.
// Never cached: this is the pre-booking fast path and must observe the
// freshest state the store can offer.
func (h *AvailabilityHandler) CheckWindow(c echo.Context) error {
	fieldID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || fieldID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid field id"})
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	start, err := parseClock(date, c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be HH:MM"})
	}
	end, err := parseClock(date, c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end must be HH:MM"})
	}
	window, err := interval.New(start, end)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start must be before end"})
	}

	ok, err := h.Guard.IsAvailable(c.Request().Context(), fieldID, date, window)
	if err != nil {
		if errors.Is(err, repository.ErrFieldNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "field not found"})
		}
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "could not verify availability"})
	}
	return c.JSON(http.StatusOK, echo.Map{"available": ok})
}

// ListBranches handles GET /v1/branches.
func (h *AvailabilityHandler) ListBranches(c echo.Context) error {
	branches, err := h.Fields.ListBranches(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": branches})
}

// GetBranch handles GET /v1/branches/:id.
func (h *AvailabilityHandler) GetBranch(c echo.Context) error {
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	branch, err := h.Fields.GetBranch(c.Request().Context(), branchID)
	if err != nil {
		if errors.Is(err, repository.ErrBranchNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, branch)
}

// ListBranchFields handles GET /v1/branches/:id/fields.
func (h *AvailabilityHandler) ListBranchFields(c echo.Context) error {
	branchID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || branchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid branch id"})
	}
	ctx := c.Request().Context()

	key := cache.BranchFieldsKey(h.Prefix, branchID)
	var cached []fieldResponse
	if h.Cache.Get(ctx, key, &cached) {
		return c.JSON(http.StatusOK, echo.Map{"items": cached})
	}

	fields, err := h.Fields.ListByBranch(ctx, branchID)
	if err != nil {
		if errors.Is(err, repository.ErrBranchNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	items := make([]fieldResponse, 0, len(fields))
	for _, f := range fields {
		items = append(items, fieldResponse{
			ID:       f.ID,
			BranchID: f.BranchID,
			Name:     f.Name,
			Sport:    f.Sport,
			Opens:    clockString(f.OpenMin),
			Closes:   clockString(f.CloseMin),
		})
	}
	if err := h.Cache.Set(ctx, key, items); err != nil {
		c.Logger().Warnf("cache: store branch fields projection failed: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

type fieldResponse struct {
	ID       uint64  `json:"id"`
	BranchID uint64  `json:"branch_id"`
	Name     string  `json:"name"`
	Sport    *string `json:"sport,omitempty"`
	Opens    string  `json:"opens"`
	Closes   string  `json:"closes"`
}

func clockString(min uint16) string {
	if min == 1440 {
		return "24:00"
	}
	return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(min) * time.Minute).Format("15:04")
}
