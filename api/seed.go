/*
seed.go - Demo dataset loader

PURPOSE:
  Populates the database with a small, self-consistent dataset for demos
  and manual testing: a handful of users with point balances, a reward
  catalog, and open reports on both sides of the exchange.

SEE ALSO:
  - handlers.go: The rest of the API surface
*/
package api

import (
	"net/http"
	"time"

	"github.com/findback/lostfound-engine/lostfound"
)

// SeedDemo resets the database and loads the demo dataset.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	users := []*lostfound.User{
		{UID: "u-alice", Name: "Alice Chen", Email: "alice@example.com", Points: 120},
		{UID: "u-bob", Name: "Bob Park", Email: "bob@example.com", Points: 45},
		{UID: "u-carol", Name: "Carol Diaz", Email: "carol@example.com", Points: 0},
	}
	for _, u := range users {
		if err := h.Store.SaveUser(ctx, u); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed users", err)
			return
		}
	}

	now := time.Now().UTC()
	rewards := []*lostfound.Reward{
		{Name: "Coffee Voucher", Description: "One free drink at the campus cafe", Stock: 25, Price: 20, Expiration: now.AddDate(0, 3, 0)},
		{Name: "Movie Ticket", Description: "Single admission, any weekday showing", Stock: 10, Price: 60, Expiration: now.AddDate(0, 6, 0)},
		{Name: "Bookstore Credit", Description: "5000 credit at the bookstore", Stock: 5, Price: 90, Expiration: now.AddDate(1, 0, 0)},
	}
	for _, rw := range rewards {
		id, err := lostfound.NewRewardID()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed rewards", err)
			return
		}
		rw.ID = id
		rw.CreatedAt = now
		if err := h.Store.SaveReward(ctx, rw); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed rewards", err)
			return
		}
	}

	type seedReport struct {
		variant  lostfound.Variant
		reporter string
		item     string
		desc     string
		category string
		lat, lon float64
		where    string
	}
	reports := []seedReport{
		{lostfound.VariantFound, "u-alice", "Black iPhone 14", "Found near the fountain, cracked case", "phone", 37.5665, 126.9780, "Central plaza fountain"},
		{lostfound.VariantFound, "u-bob", "Brown leather wallet", "Has a transit card inside", "wallet", 37.5651, 126.9895, "Bus stop 12"},
		{lostfound.VariantLost, "u-carol", "Silver wristwatch", "Sentimental value, leather strap", "watch", 37.5700, 126.9768, "Library second floor"},
		{lostfound.VariantLost, "u-alice", "Prescription glasses", "Thin gold frame in a blue case", "glasses", 37.5610, 126.9820, "Gym locker room"},
	}
	for _, sr := range reports {
		id, err := lostfound.NewReportID(sr.variant)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed reports", err)
			return
		}
		report := &lostfound.ItemReport{
			ID:             id,
			Variant:        sr.variant,
			ReporterID:     sr.reporter,
			ItemName:       sr.item,
			Description:    sr.desc,
			Category:       sr.category,
			ReportedOn:     now.AddDate(0, 0, -2),
			Latitude:       sr.lat,
			Longitude:      sr.lon,
			LocationDetail: sr.where,
			CreatedAt:      now,
		}
		if err := h.Store.SaveReport(ctx, report); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to seed reports", err)
			return
		}
	}

	h.Log.WithFields(map[string]any{
		"users":   len(users),
		"rewards": len(rewards),
		"reports": len(reports),
	}).Info("demo dataset loaded")

	writeJSON(w, http.StatusOK, map[string]any{
		"users":   len(users),
		"rewards": len(rewards),
		"reports": len(reports),
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}
