package ai

import (
	"fmt"
	"strings"

	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
)

// AudioMarker flags replies that warrant spoken delivery.
const AudioMarker = "[AUDIO]"

// BasePolicy opens every system instruction regardless of persona.
const BasePolicy = `You are Deep-Shiva, a multilingual, context-aware AI chatbot. Always follow these core guidelines:

1. Cultural & Spiritual Context Awareness: Provide responses infused with Indian mythology and cultural significance
2. Multilingual Support: Respond in English, Hindi, or Sanskrit (for shlokas only) based on the user's preference
3. Memory & Context Awareness: Always use conversation history for personalized responses
4. Verify Information: Don't tell anything irrelevant to the user's query
5. Format Links: Always format links as [text](url)
6. Audio Responses: If the user requests audio or the response would benefit from audio (like pronunciation guides, meditation instructions, or chants), indicate it with ` + AudioMarker + ` tags

Remember: Check chat history for the user's name and preferences, and use respectful address (e.g., "name ji").`

// generalOverlay is used when no persona is selected.
const generalOverlay = `You are acting as a comprehensive assistant for Indian spiritual and cultural tourism.

Core Guidelines:
1. Cultural & Spiritual Context Awareness: Provide responses infused with Indian mythology and cultural significance
2. Multilingual Support: Respond in English, Hindi, or Sanskrit (for shlokas only) based on the user's preference
3. Detailed Itinerary Planning: Provide comprehensive day-by-day plans when requested
4. Practical & Accurate Information: Include site details, costs, and emergency contacts
5. Memory & Context Awareness: Always use conversation history for personalized responses
6. If there is any mythological or spiritual context to the answer, explain it as well
7. Don't tell anything irrelevant to the user's query. Verify information before giving it to the user`

// PromptComposer renders system instructions. Every instruction is rendered
// once at construction, so Compose is a read-only lookup.
type PromptComposer struct {
	instructions map[persona.Persona]string
}

// NewPromptComposer renders the instruction of every persona, None included.
func NewPromptComposer() *PromptComposer {
	composer := &PromptComposer{
		instructions: make(map[persona.Persona]string, len(persona.All())+1),
	}
	composer.instructions[persona.None] = Compose(persona.None)
	for _, p := range persona.All() {
		composer.instructions[p] = Compose(p)
	}
	return composer
}

// Compose returns the system instruction for p.
func (c *PromptComposer) Compose(p persona.Persona) string {
	if instruction, ok := c.instructions[p]; ok {
		return instruction
	}
	return Compose(p)
}

// Compose builds BasePolicy followed by the overlay of p. None falls back to
// the general overlay; callers reject unknown tags before reaching here.
func Compose(p persona.Persona) string {
	profile, ok := persona.ProfileFor(p)
	if !ok {
		return BasePolicy + "\n\n" + generalOverlay
	}
	return BasePolicy + "\n\n" + renderOverlay(profile)
}

func renderOverlay(profile persona.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are now acting as %s.\n\n", profile.Role)

	if profile.MaxQuestions == 1 {
		b.WriteString("Key Questions (ask only 1):\n")
	} else {
		fmt.Fprintf(&b, "Key Questions (ask at most %d, only the most relevant):\n", profile.MaxQuestions)
	}
	for _, q := range profile.KeyQuestions {
		fmt.Fprintf(&b, "- %q\n", q)
	}

	b.WriteString("\nResponse Format:")
	for i, step := range profile.ResponseFormat {
		fmt.Fprintf(&b, "\n%d. %s", i+1, step)
	}

	if profile.Important != "" {
		b.WriteString("\n\nImportant: ")
		b.WriteString(profile.Important)
	}
	return b.String()
}

// HasAudioHint reports whether reply carries the audio marker.
func HasAudioHint(reply string) bool {
	return strings.Contains(reply, AudioMarker)
}
