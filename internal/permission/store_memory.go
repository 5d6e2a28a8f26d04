package permission

import (
	"sort"
	"sync"
	"time"

	"tessera/pkg/domain"
	dErrors "tessera/pkg/domain-errors"
)

type groupPair struct {
	from, to domain.Group
}

// InMemoryStore holds address permissions and the group approval matrix.
// Reads return copies so callers can never mutate stored state directly.
type InMemoryStore struct {
	mu       sync.RWMutex
	perms    map[domain.Address]AddressPermission
	approval map[groupPair]time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		perms:    make(map[domain.Address]AddressPermission),
		approval: make(map[groupPair]time.Time),
	}
}

// Get returns the permission record for account; unseen accounts get the
// zero-value default.
func (s *InMemoryStore) Get(account domain.Address) AddressPermission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(account)
}

func (s *InMemoryStore) copyOf(account domain.Address) AddressPermission {
	p := s.perms[account]
	p.Locks = append([]Lock(nil), p.Locks...)
	return p
}

func (s *InMemoryStore) SetGroup(account domain.Address, group domain.Group) (old domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.perms[account]
	old = p.Group
	p.Group = group
	s.perms[account] = p
	return old
}

func (s *InMemoryStore) SetMaxBalance(account domain.Address, max uint64) (old uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.perms[account]
	old = p.MaxBalance
	p.MaxBalance = max
	s.perms[account] = p
	return old
}

func (s *InMemoryStore) SetFrozen(account domain.Address, frozen bool) (old bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.perms[account]
	old = p.Frozen
	p.Frozen = frozen
	s.perms[account] = p
	return old
}

// AddLock inserts a lock, merging amounts when a lock with the same timestamp
// already exists. The list stays sorted by timestamp.
func (s *InMemoryStore) AddLock(account domain.Address, until time.Time, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.perms[account]
	for i := range p.Locks {
		if p.Locks[i].Until.Equal(until) {
			p.Locks[i].Amount += amount
			s.perms[account] = p
			return
		}
	}
	p.Locks = append(p.Locks, Lock{Until: until, Amount: amount})
	sort.Slice(p.Locks, func(i, j int) bool {
		return p.Locks[i].Until.Before(p.Locks[j].Until)
	})
	s.perms[account] = p
}

// RemoveLockByTimestamp removes the lock with the given timestamp. Removing a
// timestamp that has no lock is a no-op, not an error. Returns the removed
// lock and whether one was found.
func (s *InMemoryStore) RemoveLockByTimestamp(account domain.Address, until time.Time) (Lock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.perms[account]
	for i := range p.Locks {
		if p.Locks[i].Until.Equal(until) {
			removed := p.Locks[i]
			p.Locks = append(p.Locks[:i], p.Locks[i+1:]...)
			s.perms[account] = p
			return removed, true
		}
	}
	return Lock{}, false
}

// RemoveLockByIndex removes the lock at index, failing when index is out of
// range.
func (s *InMemoryStore) RemoveLockByIndex(account domain.Address, index int) (Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.perms[account]
	if index < 0 || index >= len(p.Locks) {
		return Lock{}, dErrors.Newf(dErrors.CodeIndexOutOfRange, "lock index %d out of range (have %d locks)", index, len(p.Locks))
	}
	removed := p.Locks[index]
	p.Locks = append(p.Locks[:index], p.Locks[index+1:]...)
	s.perms[account] = p
	return removed, nil
}

// LockAt returns the lock at index.
func (s *InMemoryStore) LockAt(account domain.Address, index int) (Lock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.perms[account]
	if index < 0 || index >= len(p.Locks) {
		return Lock{}, dErrors.Newf(dErrors.CodeIndexOutOfRange, "lock index %d out of range (have %d locks)", index, len(p.Locks))
	}
	return p.Locks[index], nil
}

// LockCount returns the number of lock entries for account.
func (s *InMemoryStore) LockCount(account domain.Address) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.perms[account].Locks)
}

// SetGroupApproval records the earliest timestamp at which transfers between
// the two groups are allowed. A zero time clears the approval.
func (s *InMemoryStore) SetGroupApproval(from, to domain.Group, after time.Time) (old time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupPair{from, to}
	old = s.approval[key]
	if after.IsZero() {
		delete(s.approval, key)
	} else {
		s.approval[key] = after
	}
	return old
}

// GroupApproval returns the earliest allowed timestamp for the pair and
// whether the pair has ever been approved. The zero time is not a valid
// "always allowed" sentinel; unset means never approved.
func (s *InMemoryStore) GroupApproval(from, to domain.Group) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	after, ok := s.approval[groupPair{from, to}]
	return after, ok
}
