package therapy

import "time"

// InteractionType tags the kind of therapeutic response returned to the user.
type InteractionType string

const (
	Conversation       InteractionType = "conversation"
	CrisisIntervention InteractionType = "crisis_intervention"
	ArtTherapy         InteractionType = "art_therapy"
	VoiceTherapy       InteractionType = "voice_therapy"
)

// Response is the uniform reply shape every modality handler produces.
type Response struct {
	Content       string          `json:"content"`
	Type          InteractionType `json:"responseType"`
	Modality      string          `json:"modality"`
	ToolsUsed     []string        `json:"toolsUsed"`
	Confidence    float64         `json:"confidence"`
	EmergencyFlag bool            `json:"emergencyFlag"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// ImageAnalysis is the raw result of a vision provider call.
type ImageAnalysis struct {
	ImageRef     string    `json:"imageRef"`
	AnalysisText string    `json:"analysisText"`
	Confidence   float64   `json:"confidence"`
	CreatedAt    time.Time `json:"createdAt"`
}

// VoiceAnalysis is the raw result of a transcription call plus the
// risk level assessed over the transcription.
type VoiceAnalysis struct {
	AudioRef            string    `json:"audioRef"`
	Transcription       string    `json:"transcription"`
	UrgencyLevel        int       `json:"urgencyLevel"`
	TherapeuticResponse string    `json:"therapeuticResponse,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// EmergencyAssessment carries the fixed crisis material prepended to
// replies when a turn assesses at risk level 4 or above.
type EmergencyAssessment struct {
	SessionID          string   `json:"sessionId"`
	RiskLevel          int      `json:"riskLevel"`
	Indicators         []string `json:"indicators"`
	RecommendedActions []string `json:"recommendedActions"`
	EmergencyContacts  []string `json:"emergencyContacts"`
	ImmediateResponse  string   `json:"immediateResponse"`
}
