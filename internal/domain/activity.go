package domain

import "time"

type ActivityStatus string

const (
	ActivityNotStarted ActivityStatus = "not_started"
	ActivityInProgress ActivityStatus = "in_progress"
	ActivityEnded      ActivityStatus = "ended"
)

// Activity is a time-boxed flash sale for one product with a fixed stock pool.
// SalePriceCents is the discounted unit price; SaleStock is the authoritative
// remaining stock (the fast-store counter is seeded from it).
type Activity struct {
	ID             int64
	ProductID      int64
	Name           string
	SalePriceCents int64
	SaleStock      int
	StartTime      time.Time
	EndTime        time.Time
	Status         ActivityStatus
	Deleted        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Live reports whether the activity still accepts or will accept orders.
func (a Activity) Live(now time.Time) bool {
	return !a.Deleted && a.EndTime.After(now)
}
