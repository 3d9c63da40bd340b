package orchestrator

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/safespace/safespace-agent/internal/analysis/emotion"
	"github.com/safespace/safespace-agent/internal/analysis/risk"
	sessionmodel "github.com/safespace/safespace-agent/internal/model/session"
	"github.com/safespace/safespace-agent/internal/model/therapy"
	sessionsvc "github.com/safespace/safespace-agent/internal/service/session"
)

// Agent generates a conversational reply and reports the tool it invoked,
// or "none" when no tool was used.
type Agent interface {
	GenerateReply(ctx context.Context, history []sessionmodel.Turn, userMessage string) (string, string, error)
}

// Vision analyzes an image reference and returns descriptive text.
type Vision interface {
	AnalyzeImage(ctx context.Context, imageRef, query string) (string, error)
}

// Transcriber converts an audio reference into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioRef string) (string, error)
}

// Voice synthesizes speech, reporting whether the premium provider produced it.
type Voice interface {
	GenerateVoice(ctx context.Context, text string, usePremium bool) (string, bool, error)
}

const (
	crisisImmediateResponse = "I'm very concerned about you right now. Your safety is the most important thing."

	textErrorResponse = "I apologize, but I encountered an issue processing your message. " +
		"Please try again, and if you're in crisis, please contact emergency services immediately."
	imageErrorResponse = "I had trouble analyzing your image. " +
		"Could you try uploading it again or describe what you'd like me to help you with?"
	voiceErrorResponse = "I had trouble understanding your voice message. " +
		"Could you try again or type your message?"

	noInputResponse = "I didn't receive any input to process."

	multimodalImageQuery = "Analyze this image in the context of the user's overall query"
)

var errProviderUnavailable = errors.New("capability provider not configured")

var emergencyContacts = []string{
	"Emergency Services: 911",
	"Crisis Hotline: 988",
}

var crisisIndicators = []string{
	"Suicidal ideation detected",
	"Immediate intervention needed",
}

var crisisActions = []string{
	"Contact emergency services",
	"Engage emergency call tool",
	"Provide crisis resources",
}

// Orchestrator routes incoming text, image, and audio input through the
// capability providers, applies risk triage, and keeps the session log
// current. It holds no per-session state of its own.
type Orchestrator struct {
	sessions    *sessionsvc.Store
	agent       Agent
	vision      Vision
	transcriber Transcriber
	voice       Voice
	timeout     time.Duration
}

func New(sessions *sessionsvc.Store, agent Agent, vision Vision, transcriber Transcriber, voice Voice, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Orchestrator{
		sessions:    sessions,
		agent:       agent,
		vision:      vision,
		transcriber: transcriber,
		voice:       voice,
		timeout:     timeout,
	}
}

// Status reports process health for the system status endpoint.
type Status struct {
	ActiveSessions int             `json:"activeSessions"`
	Providers      map[string]bool `json:"providers"`
}

// EmergencyAssessmentFor builds the fixed crisis material attached to
// replies when a message assesses at risk level 4 or above.
func EmergencyAssessmentFor(sessionID string, riskLevel int) therapy.EmergencyAssessment {
	return therapy.EmergencyAssessment{
		SessionID:          sessionID,
		RiskLevel:          riskLevel,
		Indicators:         crisisIndicators,
		RecommendedActions: crisisActions,
		EmergencyContacts:  emergencyContacts,
		ImmediateResponse:  crisisImmediateResponse,
	}
}

// crisisPreamble is the fixed safety text prepended to the agent reply on
// the crisis branch: the immediate-safety message followed by the
// emergency contacts.
func crisisPreamble(sessionID string, riskLevel int) string {
	assessment := EmergencyAssessmentFor(sessionID, riskLevel)
	return assessment.ImmediateResponse + "\n\n" + strings.Join(assessment.EmergencyContacts, "\n")
}

// ProcessText runs the text pipeline: risk triage, agent reply, crisis
// augmentation when the risk level reaches 4, and session bookkeeping.
func (o *Orchestrator) ProcessText(ctx context.Context, sessionID, message string) therapy.Response {
	resp, _ := o.processText(ctx, sessionID, message, true)
	return resp
}

func (o *Orchestrator) processText(ctx context.Context, sessionID, message string, record bool) (therapy.Response, int) {
	sess := o.sessions.GetOrCreate(sessionID, sessionmodel.CategoryGeneral)

	level := risk.Assess(message)
	if risk.IsEmergency(message) {
		o.sessions.SetCategory(sessionID, sessionmodel.CategoryEmergency)
	}
	if label := emotion.Classify(message); label != emotion.Neutral {
		o.sessions.SetEmotionalState(sessionID, string(label))
	}

	if record {
		o.sessions.AppendTurn(sessionID, sessionmodel.Turn{
			Role:      sessionmodel.RoleUser,
			Content:   message,
			Modality:  sessionmodel.ModalityText,
			RiskLevel: level,
		})
	}

	resp, tool, degraded := o.replyWith(ctx, sessionID, message, sess.Turns, level)
	if record && !degraded {
		o.sessions.AppendTurn(sessionID, sessionmodel.Turn{
			Role:     sessionmodel.RoleAssistant,
			Content:  resp.Content,
			Modality: sessionmodel.ModalityText,
			Metadata: toolMetadata(tool),
		})
	}
	return resp, level
}

// replyWith invokes the agent over history plus message and shapes the
// conversational or crisis-intervention response. It never writes session
// state; callers decide what to record.
func (o *Orchestrator) replyWith(ctx context.Context, sessionID, message string, history []sessionmodel.Turn, level int) (therapy.Response, string, bool) {
	var (
		tool, reply string
		err         error
	)
	if o.agent == nil {
		err = errProviderUnavailable
	} else {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		tool, reply, err = o.agent.GenerateReply(callCtx, history, message)
	}
	if err != nil {
		log.Printf("[orchestrator] agent reply failed for session %s: %v", sessionID, err)
		return therapy.Response{
			Content:       textErrorResponse,
			Type:          therapy.Conversation,
			Modality:      string(sessionmodel.ModalityText),
			ToolsUsed:     []string{"error_handler"},
			Confidence:    0.0,
			EmergencyFlag: true,
			CreatedAt:     time.Now(),
		}, "", true
	}

	if level >= 4 {
		return therapy.Response{
			Content:       crisisPreamble(sessionID, level) + "\n\n" + reply,
			Type:          therapy.CrisisIntervention,
			Modality:      string(sessionmodel.ModalityText),
			ToolsUsed:     appendTool([]string{"emergency_assessment"}, tool),
			Confidence:    0.95,
			EmergencyFlag: true,
			CreatedAt:     time.Now(),
		}, tool, false
	}
	return therapy.Response{
		Content:    reply,
		Type:       therapy.Conversation,
		Modality:   string(sessionmodel.ModalityText),
		ToolsUsed:  appendTool(nil, tool),
		Confidence: 0.8,
		CreatedAt:  time.Now(),
	}, tool, false
}

// Regenerate replaces the most recent assistant turn with a fresh agent
// reply to the same user message. Returns false when the session's last
// turn is not an assistant turn or no user message precedes it.
func (o *Orchestrator) Regenerate(ctx context.Context, sessionID string) (therapy.Response, bool) {
	if _, ok := o.sessions.PopAssistantTurn(sessionID); !ok {
		return therapy.Response{}, false
	}

	sess, ok := o.sessions.Get(sessionID)
	if !ok {
		return therapy.Response{}, false
	}

	lastUser := -1
	for i := len(sess.Turns) - 1; i >= 0; i-- {
		if sess.Turns[i].Role == sessionmodel.RoleUser {
			lastUser = i
			break
		}
	}
	if lastUser < 0 {
		return therapy.Response{}, false
	}

	message := sess.Turns[lastUser].Content
	level := risk.Assess(message)
	resp, tool, degraded := o.replyWith(ctx, sessionID, message, sess.Turns[:lastUser], level)
	if !degraded {
		o.sessions.AppendTurn(sessionID, sessionmodel.Turn{
			Role:     sessionmodel.RoleAssistant,
			Content:  resp.Content,
			Modality: sessionmodel.ModalityText,
			Metadata: toolMetadata(tool),
		})
	}
	return resp, true
}

// ProcessImage runs the image pipeline: vision analysis wrapped as an
// art-therapy response.
func (o *Orchestrator) ProcessImage(ctx context.Context, sessionID, imageRef, query string) (therapy.Response, therapy.ImageAnalysis) {
	return o.processImage(ctx, sessionID, imageRef, query, true)
}

func (o *Orchestrator) processImage(ctx context.Context, sessionID, imageRef, query string, record bool) (therapy.Response, therapy.ImageAnalysis) {
	o.sessions.GetOrCreate(sessionID, sessionmodel.CategoryGeneral)

	var (
		analysisText string
		err          error
	)
	if o.vision == nil {
		err = errProviderUnavailable
	} else {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		analysisText, err = o.vision.AnalyzeImage(callCtx, imageRef, query)
	}
	if err != nil {
		log.Printf("[orchestrator] image analysis failed for session %s: %v", sessionID, err)
		return therapy.Response{
				Content:    imageErrorResponse,
				Type:       therapy.ArtTherapy,
				Modality:   string(sessionmodel.ModalityImage),
				ToolsUsed:  []string{"error_handler"},
				Confidence: 0.0,
				CreatedAt:  time.Now(),
			}, therapy.ImageAnalysis{
				ImageRef:     imageRef,
				AnalysisText: "Error occurred during analysis",
				Confidence:   0.0,
				CreatedAt:    time.Now(),
			}
	}

	resp := therapy.Response{
		Content:    analysisText,
		Type:       therapy.ArtTherapy,
		Modality:   string(sessionmodel.ModalityImage),
		ToolsUsed:  []string{"analyze_uploaded_image"},
		Confidence: 0.8,
		CreatedAt:  time.Now(),
	}
	analysis := therapy.ImageAnalysis{
		ImageRef:     imageRef,
		AnalysisText: analysisText,
		Confidence:   0.8,
		CreatedAt:    time.Now(),
	}

	if record {
		o.sessions.AppendTurn(sessionID, sessionmodel.Turn{
			Role:     sessionmodel.RoleUser,
			Content:  "Image analysis: " + query,
			Modality: sessionmodel.ModalityImage,
		})
		o.sessions.AppendTurn(sessionID, sessionmodel.Turn{
			Role:     sessionmodel.RoleAssistant,
			Content:  analysisText,
			Modality: sessionmodel.ModalityImage,
			Metadata: toolMetadata("analyze_uploaded_image"),
		})
	}
	return resp, analysis
}

// ProcessAudio runs the audio pipeline: transcription, risk triage over the
// transcription, and unless transcriptionOnly is set, a full text pipeline
// pass over the transcribed message.
func (o *Orchestrator) ProcessAudio(ctx context.Context, sessionID, audioRef string, transcriptionOnly bool) (therapy.Response, therapy.VoiceAnalysis) {
	return o.processAudio(ctx, sessionID, audioRef, transcriptionOnly, true)
}

func (o *Orchestrator) processAudio(ctx context.Context, sessionID, audioRef string, transcriptionOnly, record bool) (therapy.Response, therapy.VoiceAnalysis) {
	o.sessions.GetOrCreate(sessionID, sessionmodel.CategoryGeneral)

	var (
		transcription string
		err           error
	)
	if o.transcriber == nil {
		err = errProviderUnavailable
	} else {
		callCtx, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		transcription, err = o.transcriber.Transcribe(callCtx, audioRef)
	}
	if err != nil || transcription == "" {
		log.Printf("[orchestrator] transcription failed for session %s: %v", sessionID, err)
		return therapy.Response{
				Content:    voiceErrorResponse,
				Type:       therapy.VoiceTherapy,
				Modality:   string(sessionmodel.ModalityAudio),
				ToolsUsed:  []string{"error_handler"},
				Confidence: 0.0,
				CreatedAt:  time.Now(),
			}, therapy.VoiceAnalysis{
				AudioRef:      audioRef,
				Transcription: "Error occurred during transcription",
				UrgencyLevel:  risk.LevelNone,
				CreatedAt:     time.Now(),
			}
	}

	level := risk.Assess(transcription)
	analysis := therapy.VoiceAnalysis{
		AudioRef:      audioRef,
		Transcription: transcription,
		UrgencyLevel:  level,
		CreatedAt:     time.Now(),
	}

	var resp therapy.Response
	if transcriptionOnly {
		resp = therapy.Response{
			Content:    transcription,
			Type:       therapy.VoiceTherapy,
			Modality:   string(sessionmodel.ModalityAudio),
			ToolsUsed:  []string{"transcription_only"},
			Confidence: 0.9,
			CreatedAt:  time.Now(),
		}
		if record {
			o.sessions.AppendTurn(sessionID, sessionmodel.Turn{
				Role:      sessionmodel.RoleUser,
				Content:   transcription,
				Modality:  sessionmodel.ModalityAudio,
				RiskLevel: level,
				Metadata:  toolMetadata("transcription_only"),
			})
		}
		return resp, analysis
	}

	inner, _ := o.processText(ctx, sessionID, transcription, record)
	analysis.TherapeuticResponse = inner.Content
	resp = therapy.Response{
		Content:       inner.Content,
		Type:          therapy.VoiceTherapy,
		Modality:      string(sessionmodel.ModalityAudio),
		ToolsUsed:     append([]string{"process_voice_message"}, inner.ToolsUsed...),
		Confidence:    inner.Confidence,
		EmergencyFlag: inner.EmergencyFlag,
		CreatedAt:     time.Now(),
	}
	return resp, analysis
}

// ProcessMultimodal composes any non-empty subset of text, image, and audio
// input in fixed order (image, audio, text). Audio-derived transcription
// substitutes for missing text so the conversational reply stays final and
// authoritative. One composite turn is recorded for the whole interaction.
func (o *Orchestrator) ProcessMultimodal(ctx context.Context, sessionID, text, imageRef, audioRef string) therapy.Response {
	o.sessions.GetOrCreate(sessionID, sessionmodel.CategoryGeneral)

	var (
		parts       []string
		tools       []string
		confidence  float64
		emergency   bool
		highestRisk int
	)

	if imageRef != "" {
		imageResp, _ := o.processImage(ctx, sessionID, imageRef, multimodalImageQuery, false)
		parts = append(parts, "Image Analysis: "+imageResp.Content)
		tools = append(tools, imageResp.ToolsUsed...)
		confidence = max(confidence, imageResp.Confidence)
		emergency = emergency || imageResp.EmergencyFlag
	}

	if audioRef != "" {
		voiceResp, voiceAnalysis := o.processAudio(ctx, sessionID, audioRef, false, false)
		parts = append(parts, "Voice Analysis: "+voiceResp.Content)
		tools = append(tools, voiceResp.ToolsUsed...)
		confidence = max(confidence, voiceResp.Confidence)
		emergency = emergency || voiceResp.EmergencyFlag
		highestRisk = max(highestRisk, voiceAnalysis.UrgencyLevel)

		if text == "" && voiceAnalysis.Transcription != "Error occurred during transcription" {
			text = voiceAnalysis.Transcription
		}
	}

	if text != "" {
		textResp, level := o.processText(ctx, sessionID, text, false)
		parts = append(parts, "AI Response: "+textResp.Content)
		tools = append(tools, textResp.ToolsUsed...)
		confidence = max(confidence, textResp.Confidence)
		emergency = emergency || textResp.EmergencyFlag
		highestRisk = max(highestRisk, level)
	}

	content := noInputResponse
	if len(parts) > 0 {
		content = strings.Join(parts, "\n\n")
	}

	resp := therapy.Response{
		Content:       content,
		Type:          therapy.Conversation,
		Modality:      string(sessionmodel.ModalityMultimodal),
		ToolsUsed:     distinct(tools),
		Confidence:    confidence,
		EmergencyFlag: emergency,
		CreatedAt:     time.Now(),
	}

	if len(parts) > 0 {
		o.sessions.AppendTurn(sessionID, sessionmodel.Turn{
			Role:      sessionmodel.RoleAssistant,
			Content:   content,
			Modality:  sessionmodel.ModalityMultimodal,
			RiskLevel: highestRisk,
			Metadata:  toolMetadata(strings.Join(resp.ToolsUsed, ",")),
		})
	}
	return resp
}

// GenerateVoice synthesizes speech for arbitrary text. Provider selection
// and the premium-to-free fallback live in the voice service.
func (o *Orchestrator) GenerateVoice(ctx context.Context, text string, usePremium bool) (string, bool, error) {
	if o.voice == nil {
		return "", false, errProviderUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.voice.GenerateVoice(callCtx, text, usePremium)
}

// History returns a snapshot of a session's conversation log.
func (o *Orchestrator) History(sessionID string) (sessionmodel.Session, bool) {
	return o.sessions.Get(sessionID)
}

// ClearSession resets a session's log in place. Clearing an unknown
// session is a no-op and returns false.
func (o *Orchestrator) ClearSession(sessionID string) bool {
	return o.sessions.Clear(sessionID)
}

// EndSession summarizes and evicts a session. Ending an unknown session
// returns nil.
func (o *Orchestrator) EndSession(sessionID string) *sessionmodel.Summary {
	return o.sessions.End(sessionID)
}

// GetStatus reports the active session count and which capability
// providers are wired.
func (o *Orchestrator) GetStatus() Status {
	return Status{
		ActiveSessions: o.sessions.Count(),
		Providers: map[string]bool{
			"agent":       o.agent != nil,
			"vision":      o.vision != nil,
			"transcriber": o.transcriber != nil,
			"voice":       o.voice != nil,
		},
	}
}

func appendTool(tools []string, tool string) []string {
	if tool == "" || tool == "none" {
		return tools
	}
	return append(tools, tool)
}

func toolMetadata(tool string) map[string]string {
	if tool == "" || tool == "none" {
		return nil
	}
	return map[string]string{"tool": tool}
}

func distinct(tools []string) []string {
	seen := make(map[string]struct{}, len(tools))
	out := make([]string, 0, len(tools))
	for _, tool := range tools {
		if _, ok := seen[tool]; ok {
			continue
		}
		seen[tool] = struct{}{}
		out = append(out, tool)
	}
	return out
}
