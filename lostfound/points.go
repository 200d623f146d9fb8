/*
points.go - Category-based point award calculation

PURPOSE:
  Maps an item category to an inclusive point range and draws a uniform
  random award within it. The range table is the contract; the specific
  draw is not.

TESTABILITY:
  The random source is injectable so tests can re-derive draws
  deterministically. RangeFor exposes the table for bound checks.
*/
package lostfound

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// RANGE TABLE
// =============================================================================

// PointRange is an inclusive award range.
type PointRange struct {
	Min int
	Max int
}

var pointRanges = map[string]PointRange{
	"phone":   {Min: 35, Max: 70},
	"wallet":  {Min: 25, Max: 40},
	"card":    {Min: 10, Max: 20},
	"watch":   {Min: 15, Max: 50},
	"glasses": {Min: 1, Max: 15},
	"jewelry": {Min: 30, Max: 70},
	"tumbler": {Min: 20, Max: 40},
	"vehicle": {Min: 50, Max: 100},
}

// defaultPointRange covers any category not in the table.
var defaultPointRange = PointRange{Min: 1, Max: 35}

// RangeFor returns the inclusive award range for a category.
// Lookup is case-insensitive; unknown categories get the default range.
func RangeFor(category string) PointRange {
	if r, ok := pointRanges[strings.ToLower(strings.TrimSpace(category))]; ok {
		return r
	}
	return defaultPointRange
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator draws point awards. Safe for concurrent use.
type Calculator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewCalculator returns a calculator seeded from the clock.
func NewCalculator() *Calculator {
	return NewCalculatorWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewCalculatorWithSource returns a calculator over the given source,
// letting tests fix the sequence of draws.
func NewCalculatorWithSource(src rand.Source) *Calculator {
	return &Calculator{rng: rand.New(src)}
}

// Award draws a uniform random award within the category's range.
func (c *Calculator) Award(category string) int {
	r := RangeFor(category)
	c.mu.Lock()
	defer c.mu.Unlock()
	return r.Min + c.rng.Intn(r.Max-r.Min+1)
}
