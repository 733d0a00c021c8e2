package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"suzu_discount/pkg/logger"
)

func init() {
	logger.Init("debug")
}

type fakeSender struct {
	name string

	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(_ context.Context, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return errors.New("send failed")
	}
	return nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type auditRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditRecorder) record(action, _, _ string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func (a *auditRecorder) has(action string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, got := range a.actions {
		if got == action {
			return true
		}
	}
	return false
}

func newTestDispatcher(primary, fallback Sender, audit *auditRecorder) *Dispatcher {
	d := NewDispatcher(primary, fallback, 3, 1, 1, 16, audit.record)
	d.retryDelay = time.Millisecond
	return d
}

func TestDispatcherDeliversViaPrimary(t *testing.T) {
	primary := &fakeSender{name: "primary"}
	audit := &auditRecorder{}

	d := newTestDispatcher(primary, nil, audit)
	d.Start()
	d.Dispatch("01012345678", "code 123456")

	assert.Eventually(t, func() bool {
		return audit.has("OTP_SENT")
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, primary.callCount())
}

func TestDispatcherFallsBackAfterRetries(t *testing.T) {
	primary := &fakeSender{name: "primary", fail: true}
	fallback := &fakeSender{name: "fallback"}
	audit := &auditRecorder{}

	d := newTestDispatcher(primary, fallback, audit)
	d.Start()
	d.Dispatch("01012345678", "code 123456")

	assert.Eventually(t, func() bool {
		return audit.has("OTP_SENT")
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, primary.callCount(), "primary should be retried up to max attempts")
	assert.Equal(t, 1, fallback.callCount())
}

func TestDispatcherDeadLettersWhenAllChannelsFail(t *testing.T) {
	primary := &fakeSender{name: "primary", fail: true}
	fallback := &fakeSender{name: "fallback", fail: true}
	audit := &auditRecorder{}

	d := newTestDispatcher(primary, fallback, audit)
	d.Start()
	d.Dispatch("01012345678", "code 123456")

	assert.Eventually(t, func() bool {
		return audit.has("OTP_SEND_FAILED")
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, audit.has("OTP_SENT"))
}
