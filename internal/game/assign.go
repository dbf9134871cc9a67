package game

import "math/rand/v2"

// AssignCharacterIndices returns a random bijection from player slots to
// character indices: a permutation of 0..n-1.
func AssignCharacterIndices(n int) []int {
	if n <= 0 {
		return nil
	}
	return rand.Perm(n)
}
