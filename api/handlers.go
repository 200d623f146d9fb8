/*
handlers.go - HTTP API handlers for the lost-and-found coordination service

PURPOSE:
  Exposes the exchange core via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engines.

ENDPOINTS:
  Items:
    POST   /api/items/found           File a found-item report
    POST   /api/items/lost            File a lost-item report
    GET    /api/items/found           Search found reports
    GET    /api/items/lost            Search lost reports
    GET    /api/items/{id}            Get one report
    POST   /api/items/{id}/confirm    Confirm the acting user's side
    DELETE /api/items/{id}            Delete an open report (owner only)

  Rewards:
    GET    /api/rewards               List rewards
    POST   /api/rewards               Create reward
    GET    /api/rewards/{id}          Get one reward
    POST   /api/rewards/{id}/purchase Purchase with points

  Users:
    GET    /api/users                 List users
    POST   /api/users                 Register user record
    GET    /api/users/{id}            Get user with balance
    GET    /api/users/{id}/grants     Grants the user holds
    GET    /api/users/{id}/ledger     Point movement history

  Demo:
    POST   /api/demo/seed             Load a demo dataset
    POST   /api/demo/reset            Clear all data

IDENTITY:
  The acting user arrives pre-authenticated in the X-User-ID header; the
  auth collaborator owns verification. This layer trusts the header.

ERROR HANDLING:
  Domain errors map to HTTP status by kind:
  - not found              -> 404
  - business-rule failure  -> 400/409
  - storage failure        -> 500

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/findback/lostfound-engine/geo"
	"github.com/findback/lostfound-engine/lostfound"
	"github.com/findback/lostfound-engine/rewards"
	"github.com/findback/lostfound-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Completion *lostfound.Engine
	Redemption *rewards.Engine
	Distance   geo.DistanceFunc
	Log        *logrus.Logger
}

// NewHandler creates a handler with the default engines over the store.
func NewHandler(store *sqlite.Store, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Store:      store,
		Completion: lostfound.NewEngine(store, lostfound.NewCalculator(), log),
		Redemption: rewards.NewEngine(store, log),
		Distance:   geo.Haversine,
		Log:        log,
	}
}

// actingUser extracts the authenticated user id supplied by the identity
// collaborator.
func actingUser(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// CreateFoundReport files a found-item report.
func (h *Handler) CreateFoundReport(w http.ResponseWriter, r *http.Request) {
	h.createReport(w, r, lostfound.VariantFound)
}

// CreateLostReport files a lost-item report.
func (h *Handler) CreateLostReport(w http.ResponseWriter, r *http.Request) {
	h.createReport(w, r, lostfound.VariantLost)
}

func (h *Handler) createReport(w http.ResponseWriter, r *http.Request, variant lostfound.Variant) {
	uid := actingUser(r)
	if uid == "" {
		writeError(w, http.StatusBadRequest, "Missing X-User-ID header", nil)
		return
	}

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ItemName == "" || req.Category == "" || req.ReportedOn == "" {
		writeError(w, http.StatusBadRequest, "Please provide item_name, category and reported_on", nil)
		return
	}

	reportedOn, err := time.Parse("2006-01-02", req.ReportedOn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid reported_on format (use YYYY-MM-DD)", err)
		return
	}

	id, err := lostfound.NewReportID(variant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate report id", err)
		return
	}

	report := &lostfound.ItemReport{
		ID:             id,
		Variant:        variant,
		ReporterID:     uid,
		ItemName:       req.ItemName,
		Description:    req.Description,
		Category:       req.Category,
		ReportedOn:     reportedOn,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		LocationDetail: req.LocationDetail,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.Store.SaveReport(r.Context(), report); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create report", err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportDTO(report))
}

// SearchFoundReports searches found-item reports.
func (h *Handler) SearchFoundReports(w http.ResponseWriter, r *http.Request) {
	h.searchReports(w, r, lostfound.VariantFound)
}

// SearchLostReports searches lost-item reports.
func (h *Handler) SearchLostReports(w http.ResponseWriter, r *http.Request) {
	h.searchReports(w, r, lostfound.VariantLost)
}

func (h *Handler) searchReports(w http.ResponseWriter, r *http.Request, variant lostfound.Variant) {
	q := r.URL.Query()
	filter := sqlite.ReportFilter{
		Variant:  variant,
		Category: q.Get("category"),
		Query:    q.Get("q"),
	}

	if q.Get("radius_km") != "" {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
		radius, errRad := strconv.ParseFloat(q.Get("radius_km"), 64)
		if errLat != nil || errLon != nil || errRad != nil {
			writeError(w, http.StatusBadRequest, "Radius search needs numeric lat, lon and radius_km", nil)
			return
		}
		filter.Near = &sqlite.RadiusFilter{Lat: lat, Lon: lon, RadiusKm: radius}
	}

	reports, err := h.Store.SearchReports(r.Context(), filter, h.Distance)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to search reports", err)
		return
	}

	dtos := make([]ReportDTO, len(reports))
	for i, rep := range reports {
		dtos[i] = toReportDTO(rep)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReport returns a single report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.Store.GetReport(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get report", err)
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "Report not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// ConfirmReport marks the acting user's side of the exchange as finished.
func (h *Handler) ConfirmReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	uid := actingUser(r)
	if uid == "" {
		writeError(w, http.StatusBadRequest, "Missing X-User-ID header", nil)
		return
	}

	result, err := h.Completion.ConfirmSide(r.Context(), id, uid)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ConfirmResponse{
		Report:          toReportDTO(result.Report),
		Status:          string(result.Status),
		Completed:       result.Completed,
		PointsAwarded:   result.PointsAwarded,
		ResolverID:      result.ResolverID,
		ResolverBalance: result.ResolverBalance,
	})
}

// DeleteReport deletes an open report; the owning reporter only.
func (h *Handler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	uid := actingUser(r)
	if uid == "" {
		writeError(w, http.StatusBadRequest, "Missing X-User-ID header", nil)
		return
	}

	if err := h.Completion.DeleteReport(r.Context(), id, uid); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// =============================================================================
// REWARD HANDLERS
// =============================================================================

// ListRewards returns all rewards.
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	list, err := h.Store.ListRewards(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rewards", err)
		return
	}

	dtos := make([]RewardDTO, len(list))
	for i, rw := range list {
		dtos[i] = toRewardDTO(rw)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReward returns a single reward.
func (h *Handler) GetReward(w http.ResponseWriter, r *http.Request) {
	reward, err := h.Store.GetReward(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get reward", err)
		return
	}
	if reward == nil {
		writeError(w, http.StatusNotFound, "Reward not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRewardDTO(reward))
}

// CreateReward creates a reward (the creation collaborator's surface).
func (h *Handler) CreateReward(w http.ResponseWriter, r *http.Request) {
	var req CreateRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.Stock <= 0 || req.Price < 0 || req.Expiration == "" {
		writeError(w, http.StatusBadRequest, "Please provide name, stock, price and expiration", nil)
		return
	}

	expiration, err := time.Parse("2006-01-02", req.Expiration)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid expiration format (use YYYY-MM-DD)", err)
		return
	}

	id, err := lostfound.NewRewardID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate reward id", err)
		return
	}

	reward := &lostfound.Reward{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Stock:       req.Stock,
		Price:       req.Price,
		Expiration:  expiration,
	}

	if err := h.Store.SaveReward(r.Context(), reward); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create reward", err)
		return
	}

	writeJSON(w, http.StatusCreated, toRewardDTO(reward))
}

// PurchaseReward buys one unit of a reward with the acting user's points.
func (h *Handler) PurchaseReward(w http.ResponseWriter, r *http.Request) {
	rewardID := chi.URLParam(r, "id")
	uid := actingUser(r)
	if uid == "" {
		writeError(w, http.StatusBadRequest, "Missing X-User-ID header", nil)
		return
	}

	receipt, err := h.Redemption.Purchase(r.Context(), uid, rewardID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PurchaseResponse{
		Grant:      toGrantDTO(receipt.Grant),
		RewardName: receipt.RewardName,
		Code:       receipt.Code,
		Balance:    receipt.Balance,
	})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = UserDTO{UID: u.UID, Name: u.Name, Email: u.Email, Points: u.Points}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser registers a user record (identity lives elsewhere; this
// stores the balance row).
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Please provide uid and name", nil)
		return
	}
	if req.Points < 0 {
		writeError(w, http.StatusBadRequest, "Points must be non-negative", nil)
		return
	}

	u := &lostfound.User{UID: req.UID, Name: req.Name, Email: req.Email, Points: req.Points}
	if err := h.Store.SaveUser(r.Context(), u); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, UserDTO{UID: u.UID, Name: u.Name, Email: u.Email, Points: u.Points})
}

// GetUser returns a user with their balance.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, UserDTO{UID: u.UID, Name: u.Name, Email: u.Email, Points: u.Points})
}

// GetUserGrants returns the grants a user holds.
func (h *Handler) GetUserGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.Store.GrantsByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get grants", err)
		return
	}

	dtos := make([]GrantDTO, len(grants))
	for i, g := range grants {
		dtos[i] = toGrantDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUserLedger returns a user's point movement history.
func (h *Handler) GetUserLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.EntriesByUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get ledger", err)
		return
	}

	dtos := make([]LedgerEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLedgerEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP status by kind.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case lostfound.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, lostfound.ErrAlreadyCompleted):
		writeError(w, http.StatusConflict, "Report already completed", err)
	case lostfound.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Request rejected", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
