package cycle

// State es el estado del cycle controller.
//
//	Idle → Fetching → Evaluating → Deciding → Executing → Idle
//
// En modo single-cycle el último Idle pasa a Terminated.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateEvaluating
	StateDeciding
	StateExecuting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "FETCHING"
	case StateEvaluating:
		return "EVALUATING"
	case StateDeciding:
		return "DECIDING"
	case StateExecuting:
		return "EXECUTING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "IDLE"
	}
}
