package lock

// ErrLockMisuse is returned when a release call is made by a goroutine (as
// identified by its Owner token) that does not currently hold the lock in
// the mode being released.
type constError string

func (e constError) Error() string { return string(e) }

const ErrLockMisuse constError = "lock: release from non-holder"
