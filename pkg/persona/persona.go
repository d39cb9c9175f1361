package persona

import "errors"

// Persona is a named system-prompt definition. Exactly one persona is
// marked default at any time after initialization.
type Persona struct {
	Name      string  `json:"name"`
	Content   string  `json:"content"`
	CreatorID string  `json:"creator_id"`
	IsDefault bool    `json:"is_default"`
	Snapshot  *string `json:"snapshot,omitempty"`
}

// Summary is the listing projection used by the paginated browser.
type Summary struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	CreatorID string `json:"creator_id"`
}

var (
	ErrNotFound  = errors.New("persona not found")
	ErrExists    = errors.New("persona already exists")
	ErrNoDefault = errors.New("no default persona")
	ErrIsDefault = errors.New("cannot delete the default persona")
)

// Store is the persistence contract for persona records.
type Store interface {
	Get(name string) (*Persona, error)
	GetDefault() (*Persona, error)
	Insert(name, content, creatorID string) error
	UpdateContent(name, content string) error
	UpdateDefaultContent(content string) error
	// SetDefault atomically clears the prior default and marks name.
	SetDefault(name string) error
	Delete(name string) error
	List(search string) ([]Summary, error)
	// Snapshot operations act on the default row and back one-level
	// undo of append.
	SetSnapshot(content string) error
	Snapshot() (content string, ok bool, err error)
	ClearSnapshot() error
}

// EnsureDefault guarantees the post-initialization invariant: if no
// persona is marked default, the seed persona is created (when
// missing) and promoted.
func EnsureDefault(s Store, name, content, creatorID string) error {
	_, err := s.GetDefault()
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoDefault) {
		return err
	}

	if _, err := s.Get(name); errors.Is(err, ErrNotFound) {
		if err := s.Insert(name, content, creatorID); err != nil && !errors.Is(err, ErrExists) {
			return err
		}
	} else if err != nil {
		return err
	}

	return s.SetDefault(name)
}
