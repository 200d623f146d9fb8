/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/findback/lostfound-engine/ledger"
	"github.com/findback/lostfound-engine/lostfound"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// ReportDTO represents an item report in API responses.
type ReportDTO struct {
	ID                   string  `json:"id"`
	Variant              string  `json:"variant"`
	ReporterID           string  `json:"reporter_id"`
	ItemName             string  `json:"item_name"`
	Description          string  `json:"description,omitempty"`
	Category             string  `json:"category"`
	ReportedOn           string  `json:"reported_on"`
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
	LocationDetail       string  `json:"location_detail,omitempty"`
	CounterpartID        string  `json:"counterpart_id,omitempty"`
	ReporterConfirmed    bool    `json:"reporter_confirmed"`
	CounterpartConfirmed bool    `json:"counterpart_confirmed"`
	Status               string  `json:"status"`
	CreatedAt            string  `json:"created_at,omitempty"`
}

func toReportDTO(r *lostfound.ItemReport) ReportDTO {
	return ReportDTO{
		ID:                   r.ID,
		Variant:              string(r.Variant),
		ReporterID:           r.ReporterID,
		ItemName:             r.ItemName,
		Description:          r.Description,
		Category:             r.Category,
		ReportedOn:           r.ReportedOn.Format("2006-01-02"),
		Latitude:             r.Latitude,
		Longitude:            r.Longitude,
		LocationDetail:       r.LocationDetail,
		CounterpartID:        r.CounterpartID,
		ReporterConfirmed:    r.ReporterConfirmed,
		CounterpartConfirmed: r.CounterpartConfirmed,
		Status:               string(r.Status()),
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
	}
}

// CreateReportRequest is the request to file a found or lost report.
type CreateReportRequest struct {
	ItemName       string  `json:"item_name"`
	Description    string  `json:"description"`
	Category       string  `json:"category"`
	ReportedOn     string  `json:"reported_on"` // YYYY-MM-DD
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LocationDetail string  `json:"location_detail"`
}

// ConfirmResponse is returned by the confirmation endpoint.
type ConfirmResponse struct {
	Report          ReportDTO `json:"report"`
	Status          string    `json:"status"`
	Completed       bool      `json:"completed"`
	PointsAwarded   int       `json:"points_awarded,omitempty"`
	ResolverID      string    `json:"resolver_id,omitempty"`
	ResolverBalance int       `json:"resolver_balance,omitempty"`
}

// =============================================================================
// USER TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Points int    `json:"points"`
}

// CreateUserRequest is the request to register a user record.
type CreateUserRequest struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Points int    `json:"points"`
}

// =============================================================================
// REWARD TYPES
// =============================================================================

// RewardDTO represents a reward in API responses.
type RewardDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Stock       int    `json:"stock"`
	Price       int    `json:"price"`
	Expiration  string `json:"expiration"`
}

func toRewardDTO(r *lostfound.Reward) RewardDTO {
	return RewardDTO{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Stock:       r.Stock,
		Price:       r.Price,
		Expiration:  r.Expiration.Format("2006-01-02"),
	}
}

// CreateRewardRequest is the request to create a reward.
type CreateRewardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Stock       int    `json:"stock"`
	Price       int    `json:"price"`
	Expiration  string `json:"expiration"` // YYYY-MM-DD
}

// GrantDTO represents a reward grant in API responses.
type GrantDTO struct {
	ID       string   `json:"id"`
	UID      string   `json:"uid"`
	RewardID string   `json:"reward_id"`
	Codes    []string `json:"codes"`
}

func toGrantDTO(g *lostfound.RewardGrant) GrantDTO {
	return GrantDTO{
		ID:       g.ID,
		UID:      g.UID,
		RewardID: g.RewardID,
		Codes:    g.Codes,
	}
}

// PurchaseResponse is returned by the purchase endpoint.
type PurchaseResponse struct {
	Grant      GrantDTO `json:"grant"`
	RewardName string   `json:"reward_name"`
	Code       string   `json:"code"`
	Balance    int      `json:"balance"`
}

// =============================================================================
// LEDGER TYPES
// =============================================================================

// LedgerEntryDTO represents a point movement in API responses.
type LedgerEntryDTO struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Delta       string `json:"delta"`
	Reason      string `json:"reason,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toLedgerEntryDTO(e ledger.Entry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:          e.ID,
		Type:        string(e.Type),
		Delta:       e.Delta.String(),
		Reason:      e.Reason,
		ReferenceID: e.ReferenceID,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
