package client

import (
	"context"
	"errors"
	"strings"

	"mystery-night/internal/game"
)

// SendMessage posts a chat line to the room. With asCharacter set the
// message carries the sender's character name and emoji so other clients
// can render it in character.
func (c *Client) SendMessage(ctx context.Context, content string, asCharacter bool) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty message")
	}

	c.mu.Lock()
	code := c.session.RoomCode
	sessionID := c.session.SessionID
	nickname := c.session.Nickname
	c.mu.Unlock()
	if code == "" {
		return ErrNotInRoom
	}

	message := game.Message{
		RoomCode:    code,
		SessionID:   sessionID,
		Nickname:    nickname,
		Content:     content,
		AsCharacter: asCharacter,
	}
	if asCharacter {
		if character, _, _, ok := c.MyCharacter(); ok {
			message.CharacterName = character.Name
			message.CharacterEmoji = character.Emoji
		} else {
			message.AsCharacter = false
		}
	}
	return c.store.InsertMessage(ctx, &message)
}
