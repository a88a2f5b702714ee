// Package listing defines the core domain entities of the comparable-listing
// valuation engine: the Listing record, the read-only corpus port it is
// served from, and the optional condition-signal port.  Everything here is
// plain data plus small pure helpers; no I/O.
package listing

import (
	"strings"
	"time"
)

// SellerType classifies the advertiser behind a listing.
type SellerType string

const (
	SellerIndividual   SellerType = "individual"
	SellerProfessional SellerType = "professional"
)

// Listing represents one observed classified advertisement.
//
// Price, Year and Mileage are pointers because sparse data is expected: a
// missing numeric field relaxes the filters and scoring factors that would
// use it, it never rejects the listing (degraded factors take a neutral 0.5).
// ID is immutable once assigned and stable across re-observation.
type Listing struct {
	ID          string     `json:"id"`
	Source      string     `json:"source,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       *int64     `json:"price,omitempty"` // currency minor units
	Year        *int       `json:"year,omitempty"`
	Mileage     *int       `json:"mileage,omitempty"`
	FuelType    string     `json:"fuel_type,omitempty"`
	SellerType  SellerType `json:"seller_type,omitempty"`
	Location    string     `json:"location,omitempty"` // department / region code
	ImageCount  int        `json:"image_count,omitempty"`
	Active      bool       `json:"active"`
	FirstSeen   time.Time  `json:"first_seen"`
	LastSeen    time.Time  `json:"last_seen"`
}

// Text returns the free text of the listing: title and description joined.
func (l *Listing) Text() string {
	if l.Description == "" {
		return l.Title
	}
	return l.Title + " " + l.Description
}

// Evaluable reports whether the listing carries enough information to be
// scored at all.  A listing with no price, no year, no mileage and no text
// cannot contribute to any factor and yields a "not evaluable" result.
func (l *Listing) Evaluable() bool {
	if l.Price != nil || l.Year != nil || l.Mileage != nil {
		return true
	}
	return strings.TrimSpace(l.Title) != "" || strings.TrimSpace(l.Description) != ""
}

// AgeYears returns the vehicle age in whole years at the supplied reference
// time, or -1 when the model year is unknown.  Negative ages (model year in
// the future) clamp to 0.
func (l *Listing) AgeYears(now time.Time) int {
	if l.Year == nil {
		return -1
	}
	age := now.Year() - *l.Year
	if age < 0 {
		return 0
	}
	return age
}

// PriceValue returns the price and whether it is known.
func (l *Listing) PriceValue() (int64, bool) {
	if l.Price == nil {
		return 0, false
	}
	return *l.Price, true
}

// ConditionSignals carries the counts of textual condition indicators
// previously extracted for a listing by an external analysis collaborator.
// Absence of signals for a listing is normal and must be tolerated.
type ConditionSignals struct {
	RedFlags          int  `json:"red_flags"`
	PositiveSignals   int  `json:"positive_signals"`
	SellerCredibility *int `json:"seller_credibility,omitempty"` // 0-100
}
