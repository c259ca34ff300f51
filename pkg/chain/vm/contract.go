package vm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Contract is a native Go contract hosted by the devnet chain. Methods take
// no arguments beyond the call environment; the chain resolves them by name,
// so method names are part of a contract's public interface.
type Contract interface {
	Call(env *Env, method string) (interface{}, error)
}

// Constructor builds a contract instance during deployment. The env carries
// the deployer as Caller, the attached value, and the block timestamp.
// Returning a RevertError aborts the deployment atomically.
type Constructor func(env *Env) (Contract, error)

// State is the view a contract gets of chain balances during a call.
// Mutations happen on a working copy; the chain commits or discards it.
type State interface {
	BalanceOf(addr common.Address) *big.Int
	Transfer(from, to common.Address, amount *big.Int) error
}

// Event is a log record emitted by a contract call. Args are JSON-friendly so
// events can be persisted and pushed over WebSocket as-is.
type Event struct {
	Contract common.Address         `json:"contract"`
	Name     string                 `json:"name"`
	Args     map[string]interface{} `json:"args"`
}

// Env is the execution environment of a single contract call.
type Env struct {
	Caller common.Address // msg.sender
	Self   common.Address // address of the contract being called
	Value  *big.Int       // attached wei, already credited to Self
	Time   int64          // block timestamp (unix seconds)
	State  State

	events []Event
}

// Emit records an event. Events are only published if the call succeeds.
func (e *Env) Emit(name string, args map[string]interface{}) {
	e.events = append(e.events, Event{Contract: e.Self, Name: name, Args: args})
}

// Events returns the events emitted so far in this call.
func (e *Env) Events() []Event { return e.events }

// RevertError is a contract-initiated failure with a human-readable reason.
// The chain rolls back all state changes of the reverted call. Harness
// assertions match the reason string exactly, so reasons are stable API.
type RevertError struct {
	Reason string
}

func (r *RevertError) Error() string { return fmt.Sprintf("execution reverted: %s", r.Reason) }

// Revert creates a RevertError with the given reason.
func Revert(reason string) error { return &RevertError{Reason: reason} }

// Revertf creates a RevertError with a formatted reason.
func Revertf(format string, args ...interface{}) error {
	return &RevertError{Reason: fmt.Sprintf(format, args...)}
}

// IsRevert reports whether err is (or wraps) a contract revert.
func IsRevert(err error) bool {
	var re *RevertError
	return errors.As(err, &re)
}

// RevertReason extracts the revert reason, or "" if err is not a revert.
func RevertReason(err error) string {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}

// ErrUnknownMethod is returned when a contract has no method by that name.
// Not a revert: calling a missing method is a harness bug, not contract logic.
var ErrUnknownMethod = errors.New("unknown contract method")
