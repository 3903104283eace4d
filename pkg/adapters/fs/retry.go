package fs

import (
	"context"
	"errors"
	iofs "io/fs"
	"syscall"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how often a file operation is attempted while another
// process (typically a sync client) holds the file.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the fixed pause between tries.
	Delay time.Duration
	// Retryable decides whether a failure is transient. Nil means IsLocked.
	Retryable func(error) bool
}

// DefaultRetryPolicy tries three times, one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: time.Second, Retryable: IsLocked}
}

// IsLocked reports whether err looks like a file held by someone else.
func IsLocked(err error) bool {
	return errors.Is(err, iofs.ErrPermission) || errors.Is(err, syscall.EBUSY)
}

// Do runs op until it succeeds, fails permanently or the attempts run out.
// The last error is returned unchanged. notify, if set, is called before each
// pause.
func (p RetryPolicy) Do(ctx context.Context, op func() error, notify func(err error, wait time.Duration)) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsLocked
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)),
		ctx,
	)

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, notify)
}
