package schedule

import "errors"

// ErrAborted is returned by Run (and EvaluateOnFramechange/EvaluateOnRefresh)
// when ctx is cancelled before every dirty operation has been dispatched
// (spec.md §7/§8 "cancellation"). Results already collected are still
// returned alongside it — every skipped operation remains dirty, so the
// next Run resumes from where this one left off.
var ErrAborted = errors.New("schedule: evaluation aborted")
