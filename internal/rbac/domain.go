package rbac

import "time"

// Role groups permissions under a named function.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permissions used by the inventory workflow routes.
const (
	PermInventoryView     = "inventory.view"
	PermAdjustmentsSubmit = "adjustments.submit"
	PermAdjustmentsReview = "adjustments.review"
)
