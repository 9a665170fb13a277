// Package notify announces apartment status changes to other systems.
package notify

import (
	"context"
	"time"

	"github.com/vbonduro/sitecheck/internal/domain"
)

// StatusChange is emitted when a save moves an apartment to a new status.
type StatusChange struct {
	Ref       domain.RecordRef       `json:"ref"`
	Previous  domain.ApartmentStatus `json:"previous"`
	Current   domain.ApartmentStatus `json:"current"`
	ChangedBy string                 `json:"changedBy"`
	ChangedAt time.Time              `json:"changedAt"`
}

type Publisher interface {
	Publish(ctx context.Context, change StatusChange) error
}

// Nop discards every change.
type Nop struct{}

func (Nop) Publish(context.Context, StatusChange) error { return nil }
