package appointment

import "sync"

type Operation string

const (
	OpBook       Operation = "book"
	OpBookCash   Operation = "book_cash"
	OpCancel     Operation = "cancel"
	OpReschedule Operation = "reschedule"
	OpComplete   Operation = "complete"
	OpRefresh    Operation = "refresh"
)

type opState struct {
	inFlight int
	err      string
}

// Tracker holds the loading flag and last error message of each operation
// so that a caller can disable the control that triggered it.
type Tracker struct {
	mu     sync.Mutex
	states map[Operation]opState
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[Operation]opState)}
}

func (t *Tracker) Loading(op Operation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[op].inFlight > 0
}

func (t *Tracker) LastError(op Operation) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[op].err
}

func (t *Tracker) start(op Operation) {
	t.mu.Lock()
	st := t.states[op]
	st.inFlight++
	st.err = ""
	t.states[op] = st
	t.mu.Unlock()
}

// finish records the outcome of one call. The operation stays loading while
// other calls of it are still in flight.
func (t *Tracker) finish(op Operation, errMsg string) {
	t.mu.Lock()
	st := t.states[op]
	if st.inFlight > 0 {
		st.inFlight--
	}
	st.err = errMsg
	t.states[op] = st
	t.mu.Unlock()
}
