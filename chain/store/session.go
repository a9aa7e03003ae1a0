// Package store implements the typed, multi-indexed object store (spec C1):
// tables of records, each supporting any number of named indices, mutated
// only inside nestable undo sessions. It is grounded on the teacher's
// chain/node StateDB/TxPool (map-backed records, relocate-on-mutate index
// upkeep) generalized from a single account table to arbitrary typed tables.
package store

// Store owns the stack of nested undo sessions. Tables are independent of
// Store; only session bookkeeping lives here, matching spec C1's framing
// that "the object store is owned by the chain thread" and mutation outside
// an open session is forbidden.
type Store struct {
	sessions []*Session
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// Begin opens a new undo session nested inside the current innermost one (if
// any).
func (s *Store) Begin() *Session {
	sess := &Session{store: s}
	s.sessions = append(s.sessions, sess)
	return sess
}

// Depth reports how many sessions are currently nested.
func (s *Store) Depth() int { return len(s.sessions) }

func (s *Store) parentOf(sess *Session) *Session {
	for i, ss := range s.sessions {
		if ss == sess {
			if i == 0 {
				return nil
			}
			return s.sessions[i-1]
		}
	}
	return nil
}

func (s *Store) pop(sess *Session) {
	n := len(s.sessions)
	if n == 0 || s.sessions[n-1] != sess {
		panic("store: session is not the innermost open session")
	}
	s.sessions = s.sessions[:n-1]
}

// Session is a nestable scope inside which table mutations are reversible in
// O(changes) by rolling back. Every evaluator runs inside one session per
// operation; its enclosing transaction and block own outer sessions. Any
// assertion failure inside the session's scope should trigger Undo, which
// unwinds every mutation performed since Begin.
type Session struct {
	store *Store
	undo  []func()
	done  bool
}

// record appends an inverse action to this session's undo log. Tables call
// this after applying a mutation.
func (s *Session) record(inverse func()) {
	s.undo = append(s.undo, inverse)
}

// Commit finalizes the session. If it is nested inside a parent session, its
// undo log is folded into the parent's so that an outer rollback still
// reverses this session's work; only the outermost commit makes mutations
// permanent.
func (s *Session) Commit() {
	if s.done {
		return
	}
	s.done = true
	if parent := s.store.parentOf(s); parent != nil {
		parent.undo = append(parent.undo, s.undo...)
	}
	s.store.pop(s)
}

// SquashIntoParent folds this session's undo log into its parent without
// otherwise distinguishing itself from Commit; it exists as a separate call
// so evaluators can make the "merge, not finalize" intent explicit.
func (s *Session) SquashIntoParent() {
	if s.done {
		return
	}
	s.done = true
	parent := s.store.parentOf(s)
	if parent == nil {
		panic("store: squash_into_parent called on a root session")
	}
	parent.undo = append(parent.undo, s.undo...)
	s.store.pop(s)
}

// Undo reverses every mutation recorded since Begin, in reverse order, and
// closes the session. It leaves any parent session untouched.
func (s *Session) Undo() {
	if s.done {
		return
	}
	for i := len(s.undo) - 1; i >= 0; i-- {
		s.undo[i]()
	}
	s.done = true
	s.store.pop(s)
}

// Run executes fn inside a fresh child session, committing on success and
// undoing on error/panic — the shape every evaluator in chain/evaluator uses.
func Run(parent *Store, fn func(*Session) error) (err error) {
	sess := parent.Begin()
	defer func() {
		if r := recover(); r != nil {
			sess.Undo()
			panic(r)
		}
	}()
	if err = fn(sess); err != nil {
		sess.Undo()
		return err
	}
	sess.Commit()
	return nil
}
