// Package schedulertest provides test doubles for arbiter.Scheduler.
//
// MockScheduler follows the shape mockgen would generate for the
// Scheduler interface (EXPECT()-style expectations via gomock); it is
// hand-written here because the Go toolchain isn't run as part of
// building this module. Immediate is a plain, non-mock scheduler for
// tests that just want deterministic synchronous execution without
// setting expectations.
package schedulertest

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockScheduler is a gomock-style mock of arbiter.Scheduler.
type MockScheduler struct {
	ctrl     *gomock.Controller
	recorder *MockSchedulerMockRecorder
}

// MockSchedulerMockRecorder records expected calls on MockScheduler.
type MockSchedulerMockRecorder struct {
	mock *MockScheduler
}

// NewMockScheduler creates a new mock instance.
func NewMockScheduler(ctrl *gomock.Controller) *MockScheduler {
	mock := &MockScheduler{ctrl: ctrl}
	mock.recorder = &MockSchedulerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected
// use.
func (m *MockScheduler) EXPECT() *MockSchedulerMockRecorder {
	return m.recorder
}

// Defer mocks base method.
func (m *MockScheduler) Defer(fn func()) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Defer", fn)
}

// Defer indicates an expected call of Defer.
func (mr *MockSchedulerMockRecorder) Defer(fn interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Defer", reflect.TypeOf((*MockScheduler)(nil).Defer), fn)
}

// Immediate is a Scheduler that runs every deferred function inline,
// synchronously, in call order. It is useful for dispatcher tests that
// want deterministic single-threaded behavior without setting up
// gomock expectations.
type Immediate struct{}

// Defer runs fn immediately.
func (Immediate) Defer(fn func()) { fn() }

// Recording counts every Defer call in Calls, then runs fn immediately.
// It does not keep the deferred functions themselves. Useful for
// asserting how many dispatches were deferred without decoupling
// execution across goroutines.
type Recording struct {
	Calls int
}

// Defer records the call and runs fn immediately.
func (r *Recording) Defer(fn func()) {
	r.Calls++
	fn()
}
