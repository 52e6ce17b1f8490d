package dinghy_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dinghy-di/dinghy"
)

// Shared fixture types used across the test files.

type testLogger struct {
	entries []string
	mu      sync.Mutex
}

func newTestLogger() *testLogger {
	return &testLogger{}
}

func (l *testLogger) Log(msg string) {
	l.mu.Lock()
	l.entries = append(l.entries, msg)
	l.mu.Unlock()
}

type testConfig struct {
	Name string
}

type testDatabase struct {
	Logger *testLogger
	Config *testConfig
}

func newTestDatabase(logger *testLogger, config *testConfig) *testDatabase {
	return &testDatabase{Logger: logger, Config: config}
}

type testSession struct {
	Database *testDatabase
}

func newTestSession(db *testDatabase) *testSession {
	return &testSession{Database: db}
}

// countingConstructor returns a constructor that records how many times it
// was invoked, for at-most-once creation assertions.
func countingConstructor() (func() *testLogger, *int64) {
	var calls int64
	return func() *testLogger {
		atomic.AddInt64(&calls, 1)
		return newTestLogger()
	}, &calls
}

// trackingDisposable records disposal order through a shared log.
type trackingDisposable struct {
	name string
	log  *disposalLog
}

func (d *trackingDisposable) Close() error {
	d.log.record(d.name)
	return nil
}

type disposalLog struct {
	mu    sync.Mutex
	order []string
}

func (l *disposalLog) record(name string) {
	l.mu.Lock()
	l.order = append(l.order, name)
	l.mu.Unlock()
}

func (l *disposalLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// ctxDisposable verifies the scope's context reaches disposal.
type ctxDisposable struct {
	mu       sync.Mutex
	closed   bool
	sawCtx   context.Context
	closeErr error
}

func (d *ctxDisposable) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.sawCtx = ctx
	return d.closeErr
}

func (d *ctxDisposable) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

var _ dinghy.Disposable = (*trackingDisposable)(nil)
var _ dinghy.DisposableWithContext = (*ctxDisposable)(nil)
