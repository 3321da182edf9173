// Package policy holds the authorization predicates shared by every edit and
// delete path.
package policy

// Ownable is any record with a single owning user.
type Ownable interface {
	OwnerID() int64
}

// IsOwner reports whether actorID owns o. Anonymous actors (id <= 0) own nothing.
func IsOwner(actorID int64, o Ownable) bool {
	if o == nil || actorID <= 0 {
		return false
	}
	return o.OwnerID() == actorID
}
