// services/confirm.go
package services

import (
	"context"

	"github.com/gewnthar/ulsync/database"
)

// Confirmer decides whether a destructive operation may proceed after
// seeing its preview. Front ends supply their own (a terminal prompt, a
// pre-approved flag).
type Confirmer interface {
	Confirm(ctx context.Context, preview *database.PrunePreview) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, preview *database.PrunePreview) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, preview *database.PrunePreview) (bool, error) {
	return f(ctx, preview)
}
