package domain

import "context"

// Remote store paths
const (
	RegistersPath = "registers"
	LegacyUserKey = "user"
	ReposKey      = "repos"
)

// ProfilePath is the canonical location of a profile
func ProfilePath(usn string) string {
	return RegistersPath + "/" + usn
}

// LegacyProfilePath is the deprecated nested location of a profile
func LegacyProfilePath(usn string) string {
	return RegistersPath + "/" + LegacyUserKey + "/" + usn
}

// ReposPath is the sub-tree holding a profile's contributions
func ReposPath(usn string) string {
	return ProfilePath(usn) + "/" + ReposKey
}

// Snapshot is the value at a path at one point in time.
// Value holds decoded JSON (map[string]any, []any, string, float64, bool).
type Snapshot struct {
	Exists bool
	Value  any
}

// RemoteStore is the hosted hierarchical key-value database.
// Any method may fail with an error wrapping ErrPermissionDenied.
type RemoteStore interface {
	Get(ctx context.Context, path string) (Snapshot, error)
	// Subscribe calls onValue with the full value at path on every change until
	// cancel is called or ctx ends. onError is called when the subscription fails;
	// no further callbacks follow it.
	Subscribe(ctx context.Context, path string, onValue func(Snapshot), onError func(error)) (cancel func())
	Set(ctx context.Context, path string, value any) error
	Update(ctx context.Context, path string, fields map[string]any) error
	// Push writes value as a new child of path under a store-generated key
	Push(ctx context.Context, path string, value any) (string, error)
}

// LocalStorage is a persistent string-keyed string store with the semantics of
// browser local storage.
type LocalStorage interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}
