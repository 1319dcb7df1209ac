package authz

import "anoa.com/coinexchange/pkg/apperror"

// Admins is the set of user ids allowed to run admin-only operations.
type Admins map[int64]struct{}

func NewAdmins(ids ...int64) Admins {
	set := make(Admins, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func (a Admins) IsAdmin(userID int64) bool {
	_, ok := a[userID]
	return ok
}

func (a Admins) Require(userID int64) error {
	if !a.IsAdmin(userID) {
		return apperror.ErrUnauthorized
	}
	return nil
}

// IDs returns the admin ids in no particular order.
func (a Admins) IDs() []int64 {
	ids := make([]int64, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	return ids
}
