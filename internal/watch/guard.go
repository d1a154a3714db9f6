package watch

// GuardState is the in-flight marker of a stage
type GuardState int

const (
	GuardIdle GuardState = iota
	GuardPending
)

func (g GuardState) String() string {
	if g == GuardPending {
		return "pending"
	}
	return "idle"
}

// guard blocks a second fetch while one is outstanding. Only the request that
// took the guard can release it, so a response arriving after a reset cannot
// clear a newer request's guard.
type guard struct {
	state GuardState
	key   string
	owner uint64
}

func (g *guard) acquire(key string, owner uint64) bool {
	if g.state == GuardPending {
		return false
	}
	*g = guard{state: GuardPending, key: key, owner: owner}
	return true
}

func (g *guard) release(owner uint64) {
	if g.state == GuardPending && g.owner == owner {
		*g = guard{}
	}
}

func (g *guard) reset() {
	*g = guard{}
}

// StageName identifies a pipeline stage
type StageName string

const (
	StageCatalog StageName = "catalog"
	StageServers StageName = "servers"
	StageStream  StageName = "stream"
)

// pipelineOrder lists stages upstream first; a stage's downstream is everything after it
var pipelineOrder = []StageName{StageCatalog, StageServers, StageStream}

// stage tracks one resolution step for the current identity.
// gen changes whenever the stage's inputs change; a response is applied only
// if it was requested under the current gen.
type stage struct {
	name     StageName
	gen      uint64
	guard    guard
	resolved bool
	err      *Error
}

func (st *stage) pending() bool {
	return st.guard.state == GuardPending
}

func (st *stage) invalidate(resetGuard bool) {
	st.gen++
	st.resolved = false
	st.err = nil
	if resetGuard {
		st.guard.reset()
	}
}
