package game

var statusOrder = map[string]int{
	StatusWaiting:    0,
	StatusGenerating: 1,
	StatusPlaying:    2,
	StatusVoting:     3,
	StatusEnded:      4,
}

// ValidStatus reports whether s is one of the room statuses.
func ValidStatus(s string) bool {
	_, ok := statusOrder[s]
	return ok
}

// CanTransition reports whether a room may move from one status to the
// next. The lifecycle is forward-only, one step at a time, with a single
// compensating exception: generating falls back to waiting when scenario
// generation fails.
func CanTransition(from, to string) bool {
	fromRank, ok := statusOrder[from]
	if !ok {
		return false
	}
	toRank, ok := statusOrder[to]
	if !ok {
		return false
	}
	if from == StatusGenerating && to == StatusWaiting {
		return true
	}
	return toRank == fromRank+1
}

// Terminal reports whether the room has reached its final status.
func Terminal(status string) bool {
	return status == StatusEnded
}
