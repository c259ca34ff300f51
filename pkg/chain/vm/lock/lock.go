// Package lock implements the time-locked vault contract: funds attached at
// deployment are held at the contract address until a fixed unlock timestamp,
// then released to the deployer in a single withdraw.
package lock

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/lockbox/pkg/chain/vm"
)

// Revert reasons. Exact strings are load-bearing: the harness and API
// clients match on them.
const (
	ReasonNotInFuture = "Unlock time should be in the future"
	ReasonTooEarly    = "You can't withdraw yet"
	ReasonNotOwner    = "You aren't the owner"
)

// Method names resolved by the chain.
const (
	MethodUnlockTime = "unlockTime"
	MethodOwner      = "owner"
	MethodWithdraw   = "withdraw"
)

// EventWithdrawal is emitted exactly once, by the one successful withdraw.
const EventWithdrawal = "Withdrawal"

// Lock holds its configuration only; the locked funds live in the chain's
// StateDB at the contract address. Both fields are fixed at construction,
// which is what makes chain snapshots safe without contract cooperation.
type Lock struct {
	unlockTime int64
	owner      common.Address
}

// Constructor returns a deploy-time constructor for a Lock that releases
// at unlockTime. The attached value becomes the locked amount and the
// deployer becomes the owner.
func Constructor(unlockTime int64) vm.Constructor {
	return func(env *vm.Env) (vm.Contract, error) {
		if unlockTime <= env.Time {
			return nil, vm.Revert(ReasonNotInFuture)
		}
		return &Lock{unlockTime: unlockTime, owner: env.Caller}, nil
	}
}

func (l *Lock) Call(env *vm.Env, method string) (interface{}, error) {
	switch method {
	case MethodUnlockTime:
		return l.unlockTime, nil
	case MethodOwner:
		return l.owner, nil
	case MethodWithdraw:
		return nil, l.withdraw(env)
	default:
		return nil, vm.ErrUnknownMethod
	}
}

// withdraw releases the full contract balance to the owner.
// Time is checked before ownership: before the unlock time, every caller
// gets the same answer.
func (l *Lock) withdraw(env *vm.Env) error {
	if env.Time < l.unlockTime {
		return vm.Revert(ReasonTooEarly)
	}
	if env.Caller != l.owner {
		return vm.Revert(ReasonNotOwner)
	}

	amount := env.State.BalanceOf(env.Self)
	if err := env.State.Transfer(env.Self, l.owner, amount); err != nil {
		return err
	}

	env.Emit(EventWithdrawal, map[string]interface{}{
		"amount": new(big.Int).Set(amount),
		"when":   env.Time,
	})
	return nil
}

var _ vm.Contract = (*Lock)(nil)
