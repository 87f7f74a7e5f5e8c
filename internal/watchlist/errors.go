package watchlist

import "fmt"

// SeedKind classifies why the stored watchlist could not be used.
type SeedKind int

const (
	ReadFailure SeedKind = iota + 1
	DecodeFailure
)

func (k SeedKind) String() string {
	switch k {
	case ReadFailure:
		return "storage_read_failure"
	case DecodeFailure:
		return "storage_decode_failure"
	default:
		return fmt.Sprintf("seed_kind(%d)", int(k))
	}
}

// SeedError is kept when Open fell back to an empty watchlist.
type SeedError struct {
	Kind SeedKind
	Key  string
	Err  error
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("%s for %s: %v", e.Kind, e.Key, e.Err)
}

func (e *SeedError) Unwrap() error { return e.Err }

// PersistError is returned by Toggle when the write did not succeed.
type PersistError struct {
	Key string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist watchlist %s: %v", e.Key, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
