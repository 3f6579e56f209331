package ai

import (
	"strings"
	"testing"

	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
)

func TestComposeStartsWithBasePolicy(t *testing.T) {
	composer := NewPromptComposer()
	for _, p := range append([]persona.Persona{persona.None}, persona.All()...) {
		got := composer.Compose(p)
		if !strings.HasPrefix(got, BasePolicy) {
			t.Fatalf("instruction for %s does not start with the base policy", p)
		}
		if got != Compose(p) {
			t.Fatalf("instruction for %s is not deterministic", p)
		}
	}
}

func TestComposeSelectsOverlay(t *testing.T) {
	cases := map[persona.Persona]string{
		persona.Travel:   "Travel Itinerary Planner",
		persona.Yoga:     "Personalized Yoga Assistant",
		persona.Wellness: "Ayurvedic and holistic practices",
		persona.Mental:   "Never provide medical advice",
		persona.None:     "comprehensive assistant",
	}
	for p, marker := range cases {
		if got := Compose(p); !strings.Contains(got, marker) {
			t.Fatalf("instruction for %s missing %q", p, marker)
		}
	}
}

func TestComposeEncodesQuestionBudget(t *testing.T) {
	if got := Compose(persona.Travel); !strings.Contains(got, "ask at most 2") {
		t.Fatalf("travel overlay should allow two questions:\n%s", got)
	}
	if got := Compose(persona.Yoga); !strings.Contains(got, "ask only 1") {
		t.Fatalf("yoga overlay should allow one question:\n%s", got)
	}
}

func TestOverlaysAreDistinct(t *testing.T) {
	seen := make(map[string]persona.Persona)
	for _, p := range append([]persona.Persona{persona.None}, persona.All()...) {
		text := Compose(p)
		if other, dup := seen[text]; dup {
			t.Fatalf("%s and %s share an instruction", p, other)
		}
		seen[text] = p
	}
}

func TestHasAudioHint(t *testing.T) {
	if !HasAudioHint("Namaste! [AUDIO]") {
		t.Fatal("expected audio hint")
	}
	if HasAudioHint("Namaste! [audio]") {
		t.Fatal("marker match is case sensitive")
	}
}
