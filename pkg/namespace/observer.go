package namespace

import (
	"time"

	"github.com/fruitsalade/memfs/pkg/entity"
)

// Op names a manager operation.
type Op string

const (
	OpCreate  Op = "create"
	OpDelete  Op = "delete"
	OpMove    Op = "move"
	OpCopy    Op = "copy"
	OpRename  Op = "rename"
	OpWrite   Op = "write"
	OpRead    Op = "read"
	OpResolve Op = "resolve"
	OpStat    Op = "stat"
	OpList    Op = "list"
	OpSearch  Op = "search"
	OpSave    Op = "save"
	OpLoad    Op = "load"
)

// Mutating reports whether the operation changes the namespace.
func (o Op) Mutating() bool {
	switch o {
	case OpCreate, OpDelete, OpMove, OpCopy, OpRename, OpWrite, OpLoad:
		return true
	}
	return false
}

// Event describes one completed manager operation.
type Event struct {
	Op Op
	// Path is the primary operand; Target is the resulting path for create,
	// move, copy and rename.
	Path   string
	Target string
	Kind   entity.Kind
	// Size is the content size after a write, or the snapshot's entity
	// count for save and load.
	Size int64
	// Entities is the total number of entities after the operation.
	Entities int
	// Seq numbers applied mutations in the order they took effect, starting
	// at 1. It is 0 for failures and for reads.
	Seq      uint64
	Duration time.Duration
	Err      error
}

// Observer receives an event after every manager operation. Observe is
// called without the manager's lock held, so events of concurrent mutations
// can arrive out of order; Event.Seq gives the order they were applied in.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

type multiObserver []Observer

func (m multiObserver) Observe(ev Event) {
	for _, o := range m {
		o.Observe(ev)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}
