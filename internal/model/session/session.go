package session

import "time"

// Category classifies the purpose of a conversation.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryTherapy   Category = "therapy"
	CategoryEmergency Category = "emergency"
	CategoryAnalysis  Category = "analysis"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Modality is the input channel a turn arrived on.
type Modality string

const (
	ModalityText       Modality = "text"
	ModalityImage      Modality = "image"
	ModalityAudio      Modality = "audio"
	ModalityMultimodal Modality = "multimodal"
)

// Turn is one logged message within a session. Turns are append-only;
// only the latest assistant turn may be replaced (regenerate).
type Turn struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Modality  Modality          `json:"modality"`
	RiskLevel int               `json:"riskLevel,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Session captures one ongoing conversation keyed by a caller-supplied id.
type Session struct {
	ID             string    `json:"id"`
	Category       Category  `json:"category"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivity   time.Time `json:"lastActivity"`
	RiskLevel      int       `json:"riskLevel"`
	EmotionalState string    `json:"emotionalState,omitempty"`
	Turns          []Turn    `json:"turns"`
}

// Summary is produced when a session ends.
type Summary struct {
	SessionID string        `json:"sessionId"`
	Duration  time.Duration `json:"duration"`
	TurnCount int           `json:"turnCount"`
	Modalities []string     `json:"modalities"`
	ToolsUsed  []string     `json:"toolsUsed"`
	RiskLevel  int          `json:"riskLevel"`
	EndedAt    time.Time    `json:"endedAt"`
}
