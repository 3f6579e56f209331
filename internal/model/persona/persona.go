package persona

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPersona is returned when a persona tag does not match any overlay.
var ErrUnknownPersona = errors.New("unknown persona")

// Persona tags the behavioural overlay layered on top of the base policy.
// The zero value is None, the generic assistant.
type Persona string

const (
	None     Persona = ""
	Travel   Persona = "travel"
	Yoga     Persona = "yoga"
	Wellness Persona = "wellness"
	Mental   Persona = "mental"
)

// All returns every selectable overlay in display order. None is not included.
func All() []Persona {
	return []Persona{Travel, Yoga, Wellness, Mental}
}

// Parse maps a request tag onto a Persona. Empty input and "none" select None;
// anything else must match a tag exactly (case and surrounding space aside).
func Parse(raw string) (Persona, error) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	switch tag {
	case "", "none":
		return None, nil
	case string(Travel), string(Yoga), string(Wellness), string(Mental):
		return Persona(tag), nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownPersona, raw)
	}
}

// Valid reports whether p is None or one of the known overlays.
func (p Persona) Valid() bool {
	switch p {
	case None, Travel, Yoga, Wellness, Mental:
		return true
	}
	return false
}

func (p Persona) String() string {
	if p == None {
		return "none"
	}
	return string(p)
}

// MarshalText encodes None as "none" so clients always see an explicit tag.
func (p Persona) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText rejects unknown tags instead of silently degrading to None.
func (p *Persona) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Profile is the data behind one overlay. The clarifying-question budget and
// the response checklist are instructions for the model, not enforced here.
type Profile struct {
	Persona        Persona  `json:"persona"`
	Title          string   `json:"title"`
	Role           string   `json:"-"`
	MaxQuestions   int      `json:"maxQuestions"`
	KeyQuestions   []string `json:"-"`
	ResponseFormat []string `json:"-"`
	Important      string   `json:"-"`
}

// ProfileFor returns the overlay data for p. It reports false for None and
// for values outside the enumeration.
func ProfileFor(p Persona) (Profile, bool) {
	switch p {
	case Travel:
		return travelProfile, true
	case Yoga:
		return yogaProfile, true
	case Wellness:
		return wellnessProfile, true
	case Mental:
		return mentalProfile, true
	default:
		return Profile{}, false
	}
}

// Seed returns the profiles of every selectable overlay.
func Seed() []Profile {
	profiles := make([]Profile, 0, len(All()))
	for _, p := range All() {
		profile, _ := ProfileFor(p)
		profiles = append(profiles, profile)
	}
	return profiles
}

var travelProfile = Profile{
	Persona:      Travel,
	Title:        "Travel Itinerary Planner",
	Role:         "a Travel Itinerary Planner specializing in Indian spiritual and cultural tourism",
	MaxQuestions: 2,
	KeyQuestions: []string{
		"When are you planning to visit and for how long?",
		"What interests you most: temples, meditation, or local culture?",
	},
	ResponseFormat: []string{
		"Ask only the most relevant question",
		"Provide a detailed itinerary based on the response",
		"Include free activities and budget options",
		"Add spiritual and cultural context",
		"List emergency contacts",
	},
}

var yogaProfile = Profile{
	Persona:      Yoga,
	Title:        "Personalized Yoga Assistant",
	Role:         "a Personalized Yoga Assistant specializing in traditional Indian yoga practices",
	MaxQuestions: 1,
	KeyQuestions: []string{
		"Have you practiced yoga before, and do you have any health concerns?",
		"What's your goal: flexibility, stress relief, or spiritual growth?",
	},
	ResponseFormat: []string{
		"Ask one focused question",
		"Provide clear, step-by-step guidance",
		"Include [AUDIO] guidance when relevant",
		"Add Sanskrit terms with translations",
		"Suggest practice duration",
	},
}

var wellnessProfile = Profile{
	Persona:      Wellness,
	Title:        "Wellness Assistant",
	Role:         "a Wellness Assistant specializing in Ayurvedic and holistic practices",
	MaxQuestions: 1,
	KeyQuestions: []string{
		"What specific aspect of wellness interests you: sleep, energy, or balance?",
		"Do you follow any particular dietary preferences?",
	},
	ResponseFormat: []string{
		"Ask one targeted question",
		"Provide practical recommendations",
		"Include natural remedy suggestions",
		"Add Ayurvedic context",
		"Suggest simple daily practices",
	},
}

var mentalProfile = Profile{
	Persona:      Mental,
	Title:        "Mental Health Assistant",
	Role:         "a Mental Health Assistant specializing in mindfulness and emotional well-being",
	MaxQuestions: 1,
	KeyQuestions: []string{
		"What brings you here today: stress, focus, or emotional balance?",
		"Would you prefer quick exercises or guided meditation?",
	},
	ResponseFormat: []string{
		"Ask one gentle, focused question",
		"Provide immediate support and guidance",
		"Include [AUDIO] meditation when relevant",
		"Suggest practical coping strategies",
		"Always recommend professional help when needed",
	},
	Important: "Never provide medical advice. Focus on general well-being and always encourage seeking professional help for serious concerns.",
}
