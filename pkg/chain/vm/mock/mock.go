// Package mock provides a contract mocking proxy: a deployed contract whose
// methods can be individually forced to revert with an arbitrary reason and
// later reset to real behavior. The proxy sits at the contract's address, so
// callers cannot tell a mocked contract from a real one.
package mock

import (
	"errors"
	"sync"

	"github.com/uhyunpark/lockbox/pkg/chain/vm"
)

// ErrNotDeployed is returned by Call when the handle's deployment never
// succeeded, so there is no real contract behind the proxy.
var ErrNotDeployed = errors.New("mock: contract not deployed")

// Mock wraps a real contract. Stubbed methods short-circuit before the real
// implementation runs, so a stubbed call has no state effects at all.
type Mock struct {
	mu    sync.Mutex
	impl  vm.Contract
	stubs map[string]string // method -> forced revert reason
	calls map[string]int    // method -> call count (stubbed calls included)
}

// WithMock wraps a constructor so the deployed contract is served through a
// mocking proxy. The returned *Mock is the harness-side control handle; it
// becomes live once deployment succeeds.
func WithMock(ctor vm.Constructor) (vm.Constructor, *Mock) {
	m := &Mock{
		stubs: make(map[string]string),
		calls: make(map[string]int),
	}
	wrapped := func(env *vm.Env) (vm.Contract, error) {
		impl, err := ctor(env)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.impl = impl
		m.mu.Unlock()
		return m, nil
	}
	return wrapped, m
}

func (m *Mock) Call(env *vm.Env, method string) (interface{}, error) {
	m.mu.Lock()
	m.calls[method]++
	reason, stubbed := m.stubs[method]
	impl := m.impl
	m.mu.Unlock()

	if stubbed {
		return nil, vm.Revert(reason)
	}
	if impl == nil {
		return nil, ErrNotDeployed
	}
	return impl.Call(env, method)
}

// StubRevert forces every subsequent call of method to revert with reason,
// regardless of the real contract's preconditions. Re-stubbing replaces the
// previous reason.
func (m *Mock) StubRevert(method, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs[method] = reason
}

// Reset removes the stub on method, restoring real behavior.
// Resetting an unstubbed method is a no-op.
func (m *Mock) Reset(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stubs, method)
}

// ResetAll clears every stub.
func (m *Mock) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stubs = make(map[string]string)
}

// CallCount returns how many times method was called through the proxy.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Impl exposes the wrapped contract for white-box assertions.
// Nil until deployment succeeds.
func (m *Mock) Impl() vm.Contract {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.impl
}

var _ vm.Contract = (*Mock)(nil)
