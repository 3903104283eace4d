package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/boydwold/spellar-vault/pkg/core"
)

// MergeOutcome tells how a daily log entry landed.
type MergeOutcome string

const (
	MergeCreated  MergeOutcome = "created"
	MergeAppended MergeOutcome = "appended"
	MergeDropped  MergeOutcome = "dropped"
)

// OpenFunc opens a file like os.OpenFile. Tests swap it to simulate a file
// held by another process.
type OpenFunc func(name string, flag int, perm os.FileMode) (io.WriteCloser, error)

func openFile(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(name, flag, perm)
}

// DailyLog appends meeting entries to one Markdown file per day.
type DailyLog struct {
	dir    string
	header func(date time.Time) string
	open   OpenFunc
	retry  RetryPolicy
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// DailyOption configures a DailyLog.
type DailyOption func(*DailyLog)

// WithHeader sets the text that opens a new day's file.
func WithHeader(fn func(date time.Time) string) DailyOption {
	return func(d *DailyLog) {
		d.header = fn
	}
}

// WithOpener replaces os.OpenFile.
func WithOpener(fn OpenFunc) DailyOption {
	return func(d *DailyLog) {
		d.open = fn
	}
}

// WithDailyRetry sets the lock retry policy.
func WithDailyRetry(p RetryPolicy) DailyOption {
	return func(d *DailyLog) {
		d.retry = p
	}
}

// WithDailyLogger sets the logger.
func WithDailyLogger(logger *slog.Logger) DailyOption {
	return func(d *DailyLog) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDailyLog keeps its files in dir.
func NewDailyLog(dir string, opts ...DailyOption) *DailyLog {
	d := &DailyLog{
		dir:    dir,
		header: func(time.Time) string { return "" },
		open:   openFile,
		retry:  DefaultRetryPolicy(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Path returns the file holding the entries for date.
func (d *DailyLog) Path(date time.Time) string {
	return filepath.Join(d.dir, date.Format("2006-01-02")+".md")
}

// Merge adds entry to the file for date, creating it with the header first
// when it does not exist yet. Merges for one date run one at a time, so the
// file lists entries in merge order.
//
// When the file stays locked for every attempt the entry is dropped and the
// error wraps core.ErrDailyLogLocked.
func (d *DailyLog) Merge(ctx context.Context, date time.Time, entry string) (MergeOutcome, error) {
	key := date.Format("2006-01-02")
	lock := d.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return MergeDropped, fmt.Errorf("failed to create daily folder: %w", err)
	}

	target := d.Path(date)
	var outcome MergeOutcome
	err := d.retry.Do(ctx, func() error {
		var err error
		outcome, err = d.mergeOnce(target, date, entry)
		return err
	}, func(err error, wait time.Duration) {
		d.logger.Info("daily log locked, retrying", "path", target, "wait", wait, "error", err)
	})
	if err == nil {
		d.logger.Debug("daily log updated", "path", target, "outcome", outcome)
		return outcome, nil
	}

	if d.retryable(err) {
		d.logger.Warn("could not update daily log, file locked", "path", target, "error", err)
		return MergeDropped, fmt.Errorf("%w: %s: %w", core.ErrDailyLogLocked, target, err)
	}
	return MergeDropped, fmt.Errorf("failed to update daily log %s: %w", target, err)
}

func (d *DailyLog) mergeOnce(target string, date time.Time, entry string) (MergeOutcome, error) {
	f, err := d.open(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		if err := writeAndClose(f, d.header(date)+entry); err != nil {
			// A retry must create the file again, header included.
			_ = os.Remove(target)
			return "", err
		}
		return MergeCreated, nil
	}
	if !errors.Is(err, iofs.ErrExist) {
		return "", err
	}

	// Already there, possibly created by another writer a moment ago.
	f, err = d.open(target, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", err
	}
	return MergeAppended, writeAndClose(f, entry)
}

func writeAndClose(f io.WriteCloser, text string) error {
	if _, err := io.WriteString(f, text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (d *DailyLog) retryable(err error) bool {
	if d.retry.Retryable != nil {
		return d.retry.Retryable(err)
	}
	return IsLocked(err)
}

// lockFor returns the mutex serializing merges for one day. One mutex per
// day ever seen is kept for the life of the process.
func (d *DailyLog) lockFor(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.locks[key]
	if !ok {
		l = &sync.Mutex{}
		d.locks[key] = l
	}
	return l
}
