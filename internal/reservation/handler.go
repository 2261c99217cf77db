package reservation

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-hotel/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hotel/internal/shared"
)

// IdempotencyKeyHeader carries the client-supplied idempotency key.
const IdempotencyKeyHeader = "Idempotency-Key"

// ActorHeader identifies the staff member acting on a request.
const ActorHeader = shared.ActorHeader

// Handler manages reservation HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers reservation routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/cancel", h.cancel)
	r.Patch("/{id}/dates", h.modifyDates)
	r.Post("/{id}/check-in", h.checkIn)
	r.Post("/{id}/check-out", h.checkOut)
}

// MountAvailability registers the availability query on a rooms router.
func (h *Handler) MountAvailability(r chi.Router) {
	r.Get("/{id}/availability", h.availability)
}

// create handles POST /reservations
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.decode(w, r, &req) {
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if key == "" {
		key = req.IdempotencyKey
	}

	result, err := h.service.Create(r.Context(), CreateInput{
		ClientID:       req.ClientID,
		RoomID:         req.RoomID,
		CheckIn:        req.CheckIn,
		CheckOut:       req.CheckOut,
		IdempotencyKey: key,
		NotifyEmail:    req.NotifyEmail,
		NotifySMS:      req.NotifySMS,
		ActorID:        actorID(r),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	httpx.JSON(w, status, CreateResponse{
		Reservation: toResponse(result.Reservation),
		Nights:      result.Nights,
		TotalPrice:  result.TotalPrice,
		Reused:      result.Reused,
	})
}

// list handles GET /reservations
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pg := shared.NewPagination(page, perPage, 0)

	filter := ListFilter{Limit: pg.PerPage, Offset: pg.Offset()}
	if v, ok := parseOptionalID(q.Get("client_id")); ok {
		filter.ClientID = &v
	}
	if v, ok := parseOptionalID(q.Get("room_id")); ok {
		filter.RoomID = &v
	}
	if s := q.Get("status"); s != "" {
		status := Status(strings.ToUpper(s))
		if !status.IsValid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status "+s)
			return
		}
		filter.Status = &status
	}
	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		if s := q.Get(param); s != "" {
			d, err := time.ParseInLocation(DateLayout, s, h.service.loc)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", param+" must be YYYY-MM-DD")
				return
			}
			*dst = &d
		}
	}

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]ReservationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toResponse(item))
	}
	httpx.JSON(w, http.StatusOK, ListResponse{
		Reservations: out,
		Pagination:   shared.NewPagination(pg.Page, filter.Limit, total),
	})
}

// show handles GET /reservations/{id}
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	res, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(res))
}

// cancel handles POST /reservations/{id}/cancel
func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req CancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.Cancel(r.Context(), id, CancelInput{
		Reason:          req.Reason,
		ExpectedVersion: req.ExpectedVersion,
		ActorID:         actorID(r),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(res))
}

// modifyDates handles PATCH /reservations/{id}/dates
func (h *Handler) modifyDates(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req ModifyDatesRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.ModifyDates(r.Context(), id, ModifyDatesInput{
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		ExpectedVersion: req.ExpectedVersion,
		ActorID:         actorID(r),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(res))
}

// checkIn handles POST /reservations/{id}/check-in
func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req CheckInRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.CheckIn(r.Context(), id, CheckInInput{
		PerformedBy:       req.PerformedBy,
		DocumentsVerified: req.DocumentsVerified,
		Observations:      req.Observations,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(res))
}

// checkOut handles POST /reservations/{id}/check-out
func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req CheckOutRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.service.CheckOut(r.Context(), id, CheckOutInput{
		PerformedBy:   req.PerformedBy,
		RoomCondition: RoomCondition(req.RoomCondition),
		Observations:  req.Observations,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(res))
}

// availability handles GET /rooms/{id}/availability
func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	out, err := h.service.Availability(r.Context(), id, q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make(map[string]any, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields[fe.Field()] = fe.Tag()
			}
			httpx.WriteProblem(w, httpx.ProblemDetail{
				Title:  "Validation Failed",
				Status: http.StatusBadRequest,
				Detail: err.Error(),
				Code:   "VALIDATION_FAILED",
				Extra:  fields,
			})
			return false
		}
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

var kindStatus = map[Kind]struct {
	status int
	title  string
}{
	KindValidation:   {http.StatusBadRequest, "Validation Failed"},
	KindNotFound:     {http.StatusNotFound, "Not Found"},
	KindPrecondition: {http.StatusUnprocessableEntity, "Precondition Failed"},
	KindConflict:     {http.StatusConflict, "Conflict"},
}

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidDateRange, "INVALID_DATE_RANGE"},
	{ErrStayTooShort, "STAY_TOO_SHORT"},
	{ErrStayTooLong, "STAY_TOO_LONG"},
	{ErrCancelReasonRequired, "CANCEL_REASON_REQUIRED"},
	{ErrCancelReasonTooLong, "CANCEL_REASON_TOO_LONG"},
	{ErrDatesRequired, "DATES_REQUIRED"},
	{ErrNotFound, "RESERVATION_NOT_FOUND"},
	{ErrClientNotFound, "CLIENT_NOT_FOUND"},
	{ErrRoomNotFound, "ROOM_NOT_FOUND"},
	{ErrClientInactive, "CLIENT_INACTIVE"},
	{ErrOutstandingDebt, "OUTSTANDING_DEBT"},
	{ErrActiveReservationExists, "ACTIVE_RESERVATION_EXISTS"},
	{ErrRoomInactive, "ROOM_INACTIVE"},
	{ErrPendingLimitExceeded, "PENDING_LIMIT_EXCEEDED"},
	{ErrCancellationWindowClosed, "CANCELLATION_WINDOW_CLOSED"},
	{ErrCheckInTooEarly, "CHECK_IN_TOO_EARLY"},
	{ErrRoomUnavailable, "ROOM_UNAVAILABLE"},
	{ErrConcurrentModification, "CONCURRENT_MODIFICATION"},
	{ErrIdempotencyKeyConflict, "IDEMPOTENCY_KEY_CONFLICT"},
}

func errorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return strings.ToUpper(string(KindOf(err)))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	mapped, ok := kindStatus[KindOf(err)]
	if !ok {
		h.logger.Error("reservation request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	p := httpx.ProblemDetail{
		Title:  mapped.title,
		Status: mapped.status,
		Detail: err.Error(),
		Code:   errorCode(err),
	}
	var debt *OutstandingDebtError
	if errors.As(err, &debt) {
		p.Extra = map[string]any{"balance": debt.Balance}
	}
	httpx.WriteProblem(w, p)
}

func actorID(r *http.Request) int64 {
	return shared.ActorFromRequest(r)
}

func parseOptionalID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
