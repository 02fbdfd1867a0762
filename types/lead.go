package types

import "time"

// Lead source values.
const (
	SourceWebsite     = "website"
	SourceFacebookAds = "facebook_ads"
	SourceGoogleAds   = "google_ads"
	SourceReferral    = "referral"
	SourceEvents      = "events"
	SourceOther       = "other"
)

// Lead status values.
const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusQualified = "qualified"
	StatusLost      = "lost"
	StatusWon       = "won"
)

// LeadSources lists every valid lead source.
var LeadSources = []string{
	SourceWebsite,
	SourceFacebookAds,
	SourceGoogleAds,
	SourceReferral,
	SourceEvents,
	SourceOther,
}

// LeadStatuses lists every valid lead status.
var LeadStatuses = []string{
	StatusNew,
	StatusContacted,
	StatusQualified,
	StatusLost,
	StatusWon,
}

// ValidLeadSource reports whether s is a known lead source.
func ValidLeadSource(s string) bool {
	return containsString(LeadSources, s)
}

// ValidLeadStatus reports whether s is a known lead status.
func ValidLeadStatus(s string) bool {
	return containsString(LeadStatuses, s)
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// Lead represents a sales lead owned by exactly one user. Every store
// operation on a lead is scoped by OwnerID.
type Lead struct {
	ID             int        `json:"id" db:"id"`
	OwnerID        int        `json:"ownerId" db:"owner_id"`
	FirstName      string     `json:"firstName" db:"first_name"`
	LastName       string     `json:"lastName" db:"last_name"`
	Email          string     `json:"email" db:"email"`
	Phone          string     `json:"phone" db:"phone"`
	Company        string     `json:"company" db:"company"`
	City           string     `json:"city" db:"city"`
	State          string     `json:"state" db:"state"`
	Source         string     `json:"source" db:"source"`
	Status         string     `json:"status" db:"status"`
	Score          int        `json:"score" db:"score"`
	LeadValue      float64    `json:"leadValue" db:"lead_value"`
	LastActivityAt *time.Time `json:"lastActivityAt" db:"last_activity_at"`
	IsQualified    bool       `json:"isQualified" db:"is_qualified"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
}

// LeadFilter is the validated filter specification compiled from list
// query parameters. Nil pointer fields impose no constraint. The owner
// constraint is not part of the filter; it is always supplied separately
// from the authenticated session.
type LeadFilter struct {
	// Email, Company and City match case-insensitively as substrings.
	Email   string
	Company string
	City    string

	// Statuses and Sources use match-any-of semantics. Empty slices
	// impose no constraint.
	Statuses []string
	Sources  []string

	// Inclusive numeric bounds, each side independently optional.
	ScoreMin     *int
	ScoreMax     *int
	LeadValueMin *float64
	LeadValueMax *float64

	// Inclusive timestamp bounds.
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	LastActivityFrom *time.Time
	LastActivityTo   *time.Time

	IsQualified *bool
}
