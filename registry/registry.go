// Package registry is the protocol wide directory: which address is the
// DAO, which addresses carry elevated permissions, and where the shared
// singletons (fee accumulator, lock token) live. Engines receive a
// *Registry (or a narrower interface of it) at construction, nothing in
// the protocol reads this through a global.
package registry

import (
	"errors"
	"sync"

	"code.curvance.io/curvance/types"
)

var (
	// ErrUnauthorized is returned when the caller lacks the permission an
	// administrative operation requires.
	ErrUnauthorized = errors.New("caller is not authorized")
	// ErrZeroAddress is returned when a directory entry would be set to the
	// zero address.
	ErrZeroAddress = errors.New("address must not be zero")
)

// Registry holds the directory state. All mutations are gated on the
// current DAO address.
type Registry struct {
	mu sync.RWMutex

	dao            types.AccountAddress
	elevated       map[types.AccountAddress]struct{}
	feeAccumulator types.AccountAddress
	lockToken      types.AssetAddress
}

// New creates a registry with the given DAO in charge.
func New(dao types.AccountAddress, feeAccumulator types.AccountAddress, lockToken types.AssetAddress) (*Registry, error) {
	zero := types.AccountAddress{}
	if dao == zero || feeAccumulator == zero || lockToken == zero {
		return nil, ErrZeroAddress
	}
	return &Registry{
		dao:            dao,
		elevated:       map[types.AccountAddress]struct{}{dao: {}},
		feeAccumulator: feeAccumulator,
		lockToken:      lockToken,
	}, nil
}

// HasDAOPermissions reports whether addr is the DAO.
func (r *Registry) HasDAOPermissions(addr types.AccountAddress) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return addr == r.dao
}

// HasElevatedPermissions reports whether addr is the DAO or has been
// granted elevated permissions by it.
func (r *Registry) HasElevatedPermissions(addr types.AccountAddress) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.elevated[addr]
	return ok
}

// FeeAccumulator returns the address allowed to deliver epoch fee data.
func (r *Registry) FeeAccumulator() types.AccountAddress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.feeAccumulator
}

// LockToken returns the vote escrow lock token.
func (r *Registry) LockToken() types.AssetAddress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lockToken
}

// TransferDAO hands directory control to a new address.
func (r *Registry) TransferDAO(caller, next types.AccountAddress) error {
	if next == (types.AccountAddress{}) {
		return ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.dao {
		return ErrUnauthorized
	}
	delete(r.elevated, r.dao)
	r.dao = next
	r.elevated[next] = struct{}{}
	return nil
}

// GrantElevated adds addr to the elevated permission set.
func (r *Registry) GrantElevated(caller, addr types.AccountAddress) error {
	if addr == (types.AccountAddress{}) {
		return ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.dao {
		return ErrUnauthorized
	}
	r.elevated[addr] = struct{}{}
	return nil
}

// RevokeElevated removes addr from the elevated permission set. The DAO
// itself cannot be revoked.
func (r *Registry) RevokeElevated(caller, addr types.AccountAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.dao {
		return ErrUnauthorized
	}
	if addr == r.dao {
		return ErrUnauthorized
	}
	delete(r.elevated, addr)
	return nil
}

// SetFeeAccumulator repoints the fee delivery address.
func (r *Registry) SetFeeAccumulator(caller, addr types.AccountAddress) error {
	if addr == (types.AccountAddress{}) {
		return ErrZeroAddress
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.dao {
		return ErrUnauthorized
	}
	r.feeAccumulator = addr
	return nil
}
