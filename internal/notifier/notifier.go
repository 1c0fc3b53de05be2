package notifier

import (
	"context"

	"github.com/weddingringring/wrr-sub001/internal/model"
)

// Notifier sends number-assignment confirmations. Fire and forget:
// callers log failures and move on; a notification must never block or
// roll back the provisioning pipeline.
type Notifier interface {
	NotifyNumberAssigned(ctx context.Context, event *model.Event, venue *model.Venue, customer *model.Customer) error
}
