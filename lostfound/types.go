/*
Package lostfound provides the core exchange-coordination engine.

PURPOSE:
  This package contains the domain types and algorithms for coordinating
  a two-party item exchange: a reporter files a found or lost item, a
  counterpart engages from the other side, and when both sides confirm
  the hand-off the report is finalized and the finder is credited with
  reward points.

KEY CONCEPTS IN THIS FILE (types.go):
  - ItemReport: A found or lost item submission with its confirmation flags
  - Variant: Which side of the exchange filed the report (found vs lost)
  - Status: Derived report state (open, partial, complete)
  - User/Reward/RewardGrant: The entities the point economy moves between

DESIGN PRINCIPLES:
  1. One table shape for both variants; the id prefix encodes the variant
  2. Completion is terminal: the flag flips false->true exactly once
  3. The payout rule is a single explicit function (Resolver), not
     conditionals scattered across call sites

SEE ALSO:
  - completion.go: The confirmation state machine
  - points.go: Category-based point award calculation
  - store.go: Persistence interfaces
*/
package lostfound

import (
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// =============================================================================
// VARIANT - Which side of the exchange filed the report
// =============================================================================

type Variant string

const (
	VariantFound Variant = "found"
	VariantLost  Variant = "lost"
)

const (
	foundIDPrefix = "fou-"
	lostIDPrefix  = "los-"
	idLength      = 10
)

// NewReportID generates a prefixed unique id for a report of the given variant.
func NewReportID(v Variant) (string, error) {
	suffix, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate report id: %w", err)
	}
	switch v {
	case VariantFound:
		return foundIDPrefix + suffix, nil
	case VariantLost:
		return lostIDPrefix + suffix, nil
	default:
		return "", fmt.Errorf("unknown report variant %q", v)
	}
}

// VariantOfID recovers the variant from a report id prefix.
func VariantOfID(id string) (Variant, bool) {
	switch {
	case strings.HasPrefix(id, foundIDPrefix):
		return VariantFound, true
	case strings.HasPrefix(id, lostIDPrefix):
		return VariantLost, true
	default:
		return "", false
	}
}

// =============================================================================
// STATUS - Derived report state
// =============================================================================

type Status string

const (
	StatusOpen     Status = "open"     // neither side has confirmed
	StatusPartial  Status = "partial"  // exactly one side has confirmed
	StatusComplete Status = "complete" // both confirmed, points awarded, terminal
)

// =============================================================================
// ITEM REPORT
// =============================================================================

// ItemReport is a found-item or lost-item submission awaiting resolution.
// Both variants share this shape; Variant (and the id prefix) tells them apart.
type ItemReport struct {
	ID          string
	Variant     Variant
	ReporterID  string // owning user
	ItemName    string
	Description string
	Category    string
	ReportedOn  time.Time // date the item was found/lost

	Latitude       float64
	Longitude      float64
	LocationDetail string

	// CounterpartID is empty until a user engages from the other side of
	// the exchange. The first non-owner to confirm becomes the counterpart.
	CounterpartID string

	ReporterConfirmed    bool
	CounterpartConfirmed bool

	// Completed transitions false->true at most once and never reverts.
	// Points are credited coincident with that transition.
	Completed bool

	CreatedAt time.Time
}

// Status derives the report state from its confirmation flags.
func (r *ItemReport) Status() Status {
	switch {
	case r.Completed:
		return StatusComplete
	case r.ReporterConfirmed || r.CounterpartConfirmed:
		return StatusPartial
	default:
		return StatusOpen
	}
}

// BothConfirmed reports whether both sides have confirmed the exchange.
func (r *ItemReport) BothConfirmed() bool {
	return r.ReporterConfirmed && r.CounterpartConfirmed
}

// Resolver returns the uid of the party that located the item, which is
// the party the point award goes to. For a found report the reporter is
// the finder; for a lost report the counterpart is. The reward always
// goes to whoever located the item, never to the one who lost it.
func (r *ItemReport) Resolver() string {
	if r.Variant == VariantLost {
		return r.CounterpartID
	}
	return r.ReporterID
}

// =============================================================================
// USER - Relevant fields only; never created or destroyed by this core
// =============================================================================

type User struct {
	UID    string
	Name   string
	Email  string
	Points int // non-negative balance
}

// =============================================================================
// REWARD - A voucher with finite stock, purchasable with points
// =============================================================================

type Reward struct {
	ID          string
	Name        string
	Description string
	Stock       int // non-negative
	Price       int // non-negative, in points
	Expiration  time.Time
	CreatedAt   time.Time
}

const rewardIDPrefix = "rew-"

// NewRewardID generates a prefixed unique reward id.
func NewRewardID() (string, error) {
	suffix, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate reward id: %w", err)
	}
	return rewardIDPrefix + suffix, nil
}

// =============================================================================
// REWARD GRANT - Per (user, reward) accumulation of redemption codes
// =============================================================================

// RewardGrant accumulates every redemption code a user has earned for one
// reward. Created on first purchase; later purchases of the same reward
// append to Codes rather than creating a second row. Codes never shrinks:
// its length equals the number of successful purchases.
type RewardGrant struct {
	ID        string
	UID       string
	RewardID  string
	Codes     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	grantIDPrefix = "grt-"
	codePrefix    = "finvouc-"
	codeLength    = 10
)

// NewGrantID generates a prefixed unique grant id.
func NewGrantID() (string, error) {
	suffix, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate grant id: %w", err)
	}
	return grantIDPrefix + suffix, nil
}

// NewRedemptionCode generates a unique voucher code for one purchase.
func NewRedemptionCode() (string, error) {
	suffix, err := gonanoid.New(codeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate redemption code: %w", err)
	}
	return codePrefix + suffix, nil
}
