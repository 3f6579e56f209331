package chat

import (
	"time"

	"github.com/KMohnishM/Deep-Shiva/internal/model/persona"
)

// Session is a read-only snapshot of one conversation, safe to serialize.
type Session struct {
	ID           string          `json:"id"`
	Persona      persona.Persona `json:"persona"`
	Turns        []Turn          `json:"turns"`
	CreatedAt    time.Time       `json:"createdAt"`
	LastActiveAt time.Time       `json:"lastActiveAt"`
}
