package election

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/saxenaaman628/redis-election/internal/models"
)

// Journal persists committed events. Append must be all-or-nothing: when it
// returns an error the event is considered not to have happened.
type Journal interface {
	// Bind records the election header, or verifies it against the stored one.
	Bind(id string, admin common.Address) error
	Append(ev models.Event) error
	// Load returns every event in commit order.
	Load() ([]models.Event, error)
}

var ErrJournalMismatch = errors.New("journal belongs to a different election")

type MemoryJournal struct {
	sync.Mutex
	bound bool
	id    string
	admin common.Address
	evs   []models.Event
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Bind(id string, admin common.Address) error {
	j.Lock()
	defer j.Unlock()

	if j.bound {
		if j.id != id || j.admin != admin {
			return ErrJournalMismatch
		}
		return nil
	}

	j.bound, j.id, j.admin = true, id, admin

	return nil
}

func (j *MemoryJournal) Append(ev models.Event) error {
	j.Lock()
	defer j.Unlock()

	j.evs = append(j.evs, ev)

	return nil
}

func (j *MemoryJournal) Load() ([]models.Event, error) {
	j.Lock()
	defer j.Unlock()

	evs := make([]models.Event, len(j.evs))
	copy(evs, j.evs)

	return evs, nil
}
