package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const helpText = `commands:
  /help          show this help
  /clue          list clues and who found them
  /clue N        investigate clue N
  /investigate   investigate the next unfound clue
  /vote N        accuse character N
  /startvote     open voting (host)
  /secret        show your character's secret`

// HandleInput routes a line of player input. Lines starting with "/" are
// commands; everything else is chat. Commands call the same operations as
// the direct API, there is no second code path.
func (c *Client) HandleInput(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if !strings.HasPrefix(input, "/") {
		return c.SendMessage(ctx, input, true)
	}

	fields := strings.Fields(input)
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "/help":
		c.notice(helpText)
		return nil
	case "/clue":
		if len(args) == 0 {
			return c.listClues(ctx)
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("usage: /clue N")
		}
		return c.investigateCommand(ctx, func(ctx context.Context) (InvestigateResult, error) {
			return c.Investigate(ctx, id)
		})
	case "/investigate":
		return c.investigateCommand(ctx, c.InvestigateNext)
	case "/vote":
		if len(args) == 0 {
			return fmt.Errorf("usage: /vote N")
		}
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("usage: /vote N")
		}
		return c.CastVote(ctx, number-1)
	case "/startvote":
		if !c.IsHost() {
			return ErrNotHost
		}
		return c.StartVoting(ctx)
	case "/secret":
		character, _, murderer, ok := c.MyCharacter()
		if !ok {
			c.notice("no character assigned yet")
			return nil
		}
		text := fmt.Sprintf("%s %s (%s)\nsecret: %s\nmotive: %s",
			character.Emoji, character.Name, character.Role, character.Secret, character.Motive)
		if murderer {
			text += "\nyou are the murderer"
		}
		c.notice(text)
		return nil
	default:
		return fmt.Errorf("unknown command %s", command)
	}
}

func (c *Client) investigateCommand(ctx context.Context, run func(context.Context) (InvestigateResult, error)) error {
	result, err := run(ctx)
	if err != nil {
		return err
	}
	if result.AlreadyFound {
		c.notice(fmt.Sprintf("clue %q was already found by %s", result.Clue.Name, foundByName(result.Clue.FoundBy)))
		return nil
	}
	c.notice(fmt.Sprintf("%s %s: %s", result.Clue.Icon, result.Clue.Name, result.Clue.Description))
	return nil
}

func (c *Client) listClues(ctx context.Context) error {
	c.mu.Lock()
	code := c.session.RoomCode
	c.mu.Unlock()
	if code == "" {
		return ErrNotInRoom
	}
	room, err := c.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.Scenario == nil {
		c.notice("no clues yet")
		return nil
	}
	var b strings.Builder
	b.WriteString("clues:")
	for _, clue := range room.Scenario.Clues {
		if clue.Found {
			fmt.Fprintf(&b, "\n  %d. %s %s (found by %s)", clue.ID, clue.Icon, clue.Name, foundByName(clue.FoundBy))
		} else {
			fmt.Fprintf(&b, "\n  %d. %s %s", clue.ID, clue.Icon, clue.Name)
		}
	}
	c.notice(b.String())
	return nil
}

func foundByName(foundBy *string) string {
	if foundBy == nil {
		return "someone"
	}
	return *foundBy
}
