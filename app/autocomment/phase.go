package autocomment

// Auto-comment phase markers on a content item. A publish cycle walks them
// forward only: idle → before_pending → before_done → after_pending →
// completed. Re-enabling auto-comments for a new post starts a new cycle at
// before_pending.
const (
	PhaseIdle          = "idle"
	PhaseBeforePending = "before_pending"
	PhaseBeforeDone    = "before_done"
	PhaseAfterPending  = "after_pending"
	PhaseCompleted     = "completed"
)

var phaseOrder = map[string]int{
	PhaseIdle:          0,
	PhaseBeforePending: 1,
	PhaseBeforeDone:    2,
	PhaseAfterPending:  3,
	PhaseCompleted:     4,
}

// IsForward reports whether moving from one phase to another goes forward
// along the cycle. Unknown phases never count as forward.
func IsForward(from, to string) bool {
	fo, ok1 := phaseOrder[from]
	to2, ok2 := phaseOrder[to]
	return ok1 && ok2 && to2 > fo
}
