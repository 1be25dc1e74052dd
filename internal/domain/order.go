package domain

import "time"

type OrderStatus string

const (
	OrderUnpaid    OrderStatus = "unpaid"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is one user's participation in one activity. Product name and price are
// snapshotted at reservation time so later catalog edits cannot change what was
// sold. At most one non-cancelled order may exist per (user, activity).
type Order struct {
	ID               int64
	OrderNo          string
	UserID           int64
	ActivityID       int64
	ProductID        int64
	ProductName      string
	SalePriceCents   int64
	Quantity         int
	TotalAmountCents int64
	Status           OrderStatus
	PayTime          *time.Time
	Deleted          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
