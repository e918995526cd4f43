// Package attempt counts credential checks per transaction and locks verification
// once a threshold is reached within a window.
package attempt

import "context"

type Limiter interface {
	// Acquire records an attempt and returns apperr.ErrTooManyAttempts when it exceeds the limit.
	// The attempt is counted before the credential is compared, so concurrent callers cannot
	// all slip under the limit.
	Acquire(ctx context.Context, key string) error
	// Reset forgets all attempts for the key
	Reset(ctx context.Context, key string) error
}
