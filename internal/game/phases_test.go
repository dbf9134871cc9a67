package game

import "testing"

func TestCanTransitionForwardOnly(t *testing.T) {
	allowed := [][2]string{
		{StatusWaiting, StatusGenerating},
		{StatusGenerating, StatusPlaying},
		{StatusPlaying, StatusVoting},
		{StatusVoting, StatusEnded},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be allowed", pair[0], pair[1])
		}
	}

	denied := [][2]string{
		{StatusWaiting, StatusPlaying},
		{StatusPlaying, StatusWaiting},
		{StatusEnded, StatusWaiting},
		{StatusVoting, StatusPlaying},
		{StatusEnded, StatusVoting},
		{StatusWaiting, StatusWaiting},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Fatalf("expected %s -> %s to be denied", pair[0], pair[1])
		}
	}
}

func TestCanTransitionGenerationFallback(t *testing.T) {
	if !CanTransition(StatusGenerating, StatusWaiting) {
		t.Fatalf("expected generating -> waiting compensation to be allowed")
	}
	if CanTransition(StatusPlaying, StatusGenerating) {
		t.Fatalf("expected playing -> generating to be denied")
	}
}

func TestTerminal(t *testing.T) {
	if Terminal(StatusVoting) {
		t.Fatalf("voting is not terminal")
	}
	if !Terminal(StatusEnded) {
		t.Fatalf("ended is terminal")
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []string{StatusWaiting, StatusGenerating, StatusPlaying, StatusVoting, StatusEnded} {
		if !ValidStatus(status) {
			t.Fatalf("expected %s to be valid", status)
		}
	}
	if ValidStatus("paused") {
		t.Fatalf("expected paused to be invalid")
	}
}
