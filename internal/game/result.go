package game

// Result is the outcome of a finished game, derived from the room's vote
// map and scenario. Every client computes the same result locally once the
// room reaches the ended status.
type Result struct {
	Success       bool
	AccusedIndex  int
	MurdererIndex int
	VoteCount     map[int]int
}

// ComputeResult tallies votes by accused character index. The accused is
// the index with the highest count; ties resolve to the lowest character
// index so all clients agree.
func ComputeResult(scenario *Scenario, votes map[string]int) Result {
	voteCount := make(map[int]int, len(votes))
	for _, index := range votes {
		voteCount[index]++
	}
	accused := -1
	maxVotes := 0
	for index, count := range voteCount {
		if count > maxVotes || (count == maxVotes && accused >= 0 && index < accused) {
			maxVotes = count
			accused = index
		}
	}
	result := Result{
		AccusedIndex:  accused,
		MurdererIndex: -1,
		VoteCount:     voteCount,
	}
	if scenario != nil {
		result.MurdererIndex = scenario.MurdererIndex
		result.Success = accused == scenario.MurdererIndex
	}
	return result
}
