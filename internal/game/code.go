package game

import "crypto/rand"

// NewRoomCode returns a 6-character room code. Ambiguous-looking
// characters (0, O, 1, I) are excluded from the alphabet.
func NewRoomCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = alphabet[int(buf[i])%len(alphabet)]
	}
	return string(buf)
}
