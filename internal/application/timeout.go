package application

import (
	"context"
	"time"
)

// WithTimeout bounds ctx by d. Zero or negative d leaves ctx as is.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
