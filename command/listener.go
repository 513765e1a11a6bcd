package command

import (
	"github.com/maedhroz/cassandra-accord/status"
	"github.com/maedhroz/cassandra-accord/txnid"
)

// ListenerID indexes into a Store's listener arena. Command→listener
// back-references form a potentially cyclic graph (a waits on b which
// waits on a is possible transiently); this is represented as integer
// indices into an arena rather than pointer cycles. Notification
// clears a command's listener list before firing it and a listener
// only acts on a forward status change, so a cycle is merely inert
// rather than a problem to detect.
type ListenerID int

// Listener is notified when the command it was registered against
// changes status. CommandStore owns the arena and the dispatch loop;
// Listener implementations (another Command's "wait for my deps"
// hook, or a WaitOnCommit handler) only react.
type Listener interface {
	OnStatusChange(s *Safe, watched *Command)
}

// arena is the Store-local listener slot table.
type arena struct {
	slots []Listener
}

func (a *arena) add(l Listener) ListenerID {
	a.slots = append(a.slots, l)
	return ListenerID(len(a.slots) - 1)
}

func (a *arena) get(id ListenerID) Listener {
	return a.slots[id]
}

// depListener implements Listener for the "wake the dependent command
// when a dependency's status changes" relation: for each dep d, a
// command registers itself as a listener of d. It re-checks whether
// all of watcher's local deps are now
// Applied and, if so, advances watcher to ReadyToExecute.
type depListener struct {
	watcher txnid.TxnId
}

func (d depListener) OnStatusChange(s *Safe, watched *Command) {
	watcher := s.Command(d.watcher)
	if watcher == nil || watcher.Status.AtLeast(status.ReadyToExecute) {
		return
	}
	if s.allLocalDepsApplied(watcher) {
		watcher.Advance(status.ReadyToExecute)
		s.notify(watcher)
	}
}
