package store

// LoadState tracks the view-load guard.
type LoadState int

const (
	Idle LoadState = iota
	Loading
	Queued
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Queued:
		return "queued"
	default:
		return "idle"
	}
}

// Ticket is a completion token. Work started under a ticket must be
// discarded once the ticket is no longer current.
type Ticket uint64

// LoadRequest asks for a view of cards with the given archive state.
type LoadRequest struct {
	Archived bool
}

type loadState struct {
	state    LoadState
	gen      Ticket
	inflight Ticket
	current  LoadRequest
	queued   *LoadRequest
}

// BeginLoad starts a load when the store is idle and returns its ticket.
// While a load is in flight the request is queued instead, replacing any
// request queued before it, and ok is false.
func (s *Store) BeginLoad(req LoadRequest) (t Ticket, ok bool) {
	if s.load.state != Idle {
		q := req
		s.load.queued = &q
		s.load.state = Queued
		return 0, false
	}
	s.load.gen++
	s.load.inflight = s.load.gen
	s.load.current = req
	s.load.state = Loading
	return s.load.inflight, true
}

// FinishLoad ends the in-flight load. It returns the queued request that
// must run next, which is only the case when it asks for a different
// archive state than the load that just finished.
func (s *Store) FinishLoad(t Ticket) *LoadRequest {
	if s.load.state == Idle || t != s.load.inflight {
		return nil
	}
	q := s.load.queued
	s.load.queued = nil
	s.load.state = Idle
	s.load.inflight = 0
	if q != nil && q.Archived != s.load.current.Archived {
		return q
	}
	return nil
}

// Token returns the current completion token for deferred work.
func (s *Store) Token() Ticket {
	return s.load.gen
}

// Valid reports whether work started under t may still complete.
func (s *Store) Valid(t Ticket) bool {
	return t == s.load.gen
}

// Invalidate makes every outstanding ticket stale.
func (s *Store) Invalidate() {
	s.load.gen++
}

// LoadState returns the state of the load guard.
func (s *Store) LoadState() LoadState {
	return s.load.state
}
