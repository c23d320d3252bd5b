package domain

import "time"

// Deal is the canonical funding record for one company.
// Empty strings and a nil Amount are stored as NULL.
type Deal struct {
	ID          int64
	Number      int
	CompanyName string
	Industry    string
	Stage       string
	Investors   string
	// Amount is expressed in 억원 (10^8 KRW), rounded to one decimal place.
	Amount    *float64
	NewsTitle string
	NewsURL   string
	SiteName  string
	NewsDate  time.Time
	CreatedAt time.Time

	// Score is the score of the cited article; it is not a deals column and is
	// resolved from the article log when a deal is read.
	Score int
}

// ReconcileOutcome reports what Reconcile did with a proposed deal.
type ReconcileOutcome string

const (
	OutcomeCreated   ReconcileOutcome = "created"
	OutcomeUpdated   ReconcileOutcome = "updated"
	OutcomeUnchanged ReconcileOutcome = "unchanged"
)
