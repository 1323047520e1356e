package syncer

import "github.com/syncpair/syncpair/internal/planner"

// Report summarizes one run's outcome: per-kind action counts plus any
// per-action failures collected along the way.
type Report struct {
	RunID   string
	Actions []planner.SyncAction
	Counts  map[planner.Kind]int
	DryRun  bool
	Errors  []error
}

func newReport() *Report {
	return &Report{Counts: make(map[planner.Kind]int)}
}

func (r *Report) record(a planner.SyncAction) {
	r.Actions = append(r.Actions, a)
	r.Counts[a.Kind]++
}

func kindLabel(k planner.Kind) string {
	switch k {
	case planner.Upload:
		return "UPLOAD"
	case planner.Download:
		return "DOWNLOAD"
	case planner.RemoveOnSource:
		return "REMOVE_SRC"
	case planner.RemoveOnDestination:
		return "REMOVE_DST"
	case planner.MoveOnSource:
		return "MOVE_SRC"
	case planner.MoveOnDestination:
		return "MOVE_DST"
	case planner.ResolveConflict:
		return "RESOLVE_CONFLICT"
	case planner.Noop:
		return "NOOP"
	case planner.RaiseError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
