// Package domain defines the core business types for the ticket monitor.
package domain

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Vendor identifies a ticketing platform.
type Vendor string

// Vendor constants.
const (
	VendorLiveLab Vendor = "livelab"
	VendorMaoyan  Vendor = "maoyan"
)

// Contact holds the buyer details used when placing an order.
type Contact struct {
	Name  string `json:"name"  yaml:"name"`
	Phone string `json:"phone" yaml:"phone"`
}

// TargetCriteria describes one monitored show and what counts as a hit.
// It is built from configuration at startup and never mutated afterwards.
type TargetCriteria struct {
	Name      string `json:"name"`
	Vendor    Vendor `json:"vendor"`
	ShowID    string `json:"show_id"`
	ProjectID string `json:"project_id,omitempty"`
	Enabled   bool   `json:"enabled"`

	// Matching
	Prices []float64 `json:"prices"`
	Dates  []string  `json:"dates"`

	// Ordering
	Contact     Contact  `json:"contact"`
	FrequentIDs []string `json:"frequent_ids,omitempty"`
}

// PriceMatches reports whether price is one of the target prices.
// An empty price set matches nothing.
func (c *TargetCriteria) PriceMatches(price float64) bool {
	return slices.Contains(c.Prices, price)
}

// DateMatches reports whether label contains any target date as an exact,
// case-sensitive substring. An empty date set matches nothing.
func (c *TargetCriteria) DateMatches(label string) bool {
	for _, d := range c.Dates {
		if d != "" && strings.Contains(label, d) {
			return true
		}
	}
	return false
}

// SeatOffer is one purchasable ticket tier as normalized by a vendor adapter.
type SeatOffer struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Remaining    int     `json:"remaining"`
	Available    bool    `json:"available"`
	SessionID    string  `json:"session_id,omitempty"`
	SessionLabel string  `json:"session_label"`
}

// PriceString renders the price without a trailing ".0" for whole amounts.
func (o *SeatOffer) PriceString() string {
	return strconv.FormatFloat(o.Price, 'f', -1, 64)
}

// PollResult is a single vendor response snapshot. It is created fresh on
// every poll and discarded after evaluation.
type PollResult struct {
	Vendor   Vendor      `json:"vendor"`
	ShowID   string      `json:"show_id"`
	ShowName string      `json:"show_name"`
	OnSaleAt *time.Time  `json:"on_sale_at,omitempty"`
	Offers   []SeatOffer `json:"offers"`
	PolledAt time.Time   `json:"polled_at"`
}

// Finding is an available offer, flagged when it satisfies the target
// price and date criteria.
type Finding struct {
	Offer         SeatOffer `json:"offer"`
	IsTargetMatch bool      `json:"is_target_match"`
}

// NotificationKey fingerprints a notification-worthy fact for deduplication.
type NotificationKey string

// ShowKey returns the "any availability" key for a show.
func ShowKey(v Vendor, showID string) NotificationKey {
	return NotificationKey(string(v) + "|" + showID)
}

// MatchKey returns the per-offer target match key.
func MatchKey(v Vendor, showID string, o *SeatOffer) NotificationKey {
	return NotificationKey(
		string(v) + "|" + showID + "|" + o.ID + "|" + o.PriceString(),
	)
}

// PollerPhase is the state a poller is currently in.
type PollerPhase string

// Poller phase constants.
const (
	PhaseIdle        PollerPhase = "idle"
	PhasePolling     PollerPhase = "polling"
	PhaseEvaluating  PollerPhase = "evaluating"
	PhaseDispatching PollerPhase = "dispatching"
	PhaseResting     PollerPhase = "resting"
	PhaseStopped     PollerPhase = "stopped"
)

// PollerState is a read-only snapshot of one poller's progress.
type PollerState struct {
	Target     string      `json:"target"`
	Vendor     Vendor      `json:"vendor"`
	InstanceID string      `json:"instance_id"`
	Runs       int64       `json:"runs"`
	Errors     int64       `json:"errors"`
	LastPollAt *time.Time  `json:"last_poll_at,omitempty"`
	StartedAt  time.Time   `json:"started_at"`
	Alive      bool        `json:"alive"`
	Phase      PollerPhase `json:"phase"`
	Restarts   int         `json:"restarts"`
}

// NotificationKind classifies a delivered notification.
type NotificationKind string

// Notification kind constants.
const (
	KindReservation  NotificationKind = "reservation"
	KindAvailability NotificationKind = "availability"
)

// NotificationRecord is an audit entry for a delivered notification.
type NotificationRecord struct {
	ID         string           `json:"id"          db:"id"`
	Vendor     Vendor           `json:"vendor"      db:"vendor"`
	ShowID     string           `json:"show_id"     db:"show_id"`
	Target     string           `json:"target"      db:"target"`
	Kind       NotificationKind `json:"kind"        db:"kind"`
	Subject    string           `json:"subject"     db:"subject"`
	OfferCount int              `json:"offer_count" db:"offer_count"`
	SentAt     time.Time        `json:"sent_at"     db:"sent_at"`
}
