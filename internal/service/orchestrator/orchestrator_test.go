package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sessionmodel "github.com/safespace/safespace-agent/internal/model/session"
	"github.com/safespace/safespace-agent/internal/model/therapy"
	sessionsvc "github.com/safespace/safespace-agent/internal/service/session"
)

type fakeAgent struct {
	tool  string
	reply string
	err   error
	calls int
}

func (f *fakeAgent) GenerateReply(ctx context.Context, history []sessionmodel.Turn, userMessage string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return f.tool, f.reply, nil
}

type fakeVision struct {
	analysis string
	err      error
}

func (f *fakeVision) AnalyzeImage(ctx context.Context, imageRef, query string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.analysis, nil
}

type fakeTranscriber struct {
	transcription string
	err           error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioRef string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.transcription, nil
}

type fakeVoice struct {
	audioRef string
	err      error
}

func (f *fakeVoice) GenerateVoice(ctx context.Context, text string, usePremium bool) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	return f.audioRef, usePremium, nil
}

func newTestOrchestrator(agent Agent, vision Vision, transcriber Transcriber, voice Voice) (*Orchestrator, *sessionsvc.Store) {
	store := sessionsvc.NewStore()
	return New(store, agent, vision, transcriber, voice, 5*time.Second), store
}

func TestProcessTextNormal(t *testing.T) {
	agent := &fakeAgent{tool: "get_daily_affirmation", reply: "You are enough."}
	o, store := newTestOrchestrator(agent, nil, nil, nil)

	resp := o.ProcessText(context.Background(), "s1", "Can you give me a daily affirmation?")

	if resp.Type != therapy.Conversation {
		t.Errorf("unexpected response type: %s", resp.Type)
	}
	if resp.EmergencyFlag {
		t.Error("emergency flag must not be set for benign input")
	}
	if resp.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8", resp.Confidence)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != "get_daily_affirmation" {
		t.Errorf("unexpected tools: %v", resp.ToolsUsed)
	}

	sess, ok := store.Get("s1")
	if !ok {
		t.Fatal("session not created")
	}
	if sess.RiskLevel != 1 {
		t.Errorf("session risk = %d, want 1", sess.RiskLevel)
	}
	if len(sess.Turns) != 2 {
		t.Fatalf("expected user and assistant turns, got %d", len(sess.Turns))
	}
	if sess.Turns[0].Role != sessionmodel.RoleUser || sess.Turns[1].Role != sessionmodel.RoleAssistant {
		t.Error("turns recorded in wrong order")
	}
}

func TestProcessTextCrisis(t *testing.T) {
	agent := &fakeAgent{tool: "emergency_call_tool", reply: "Please stay with me."}
	o, store := newTestOrchestrator(agent, nil, nil, nil)

	resp := o.ProcessText(context.Background(), "s1", "I want to kill myself")

	if !resp.EmergencyFlag {
		t.Error("emergency flag must be set for high-risk input")
	}
	if resp.Type != therapy.CrisisIntervention {
		t.Errorf("unexpected response type: %s", resp.Type)
	}
	if resp.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", resp.Confidence)
	}
	if !strings.Contains(resp.Content, crisisImmediateResponse) {
		t.Error("crisis response must include the immediate-safety message")
	}
	if !strings.Contains(resp.Content, "988") {
		t.Error("crisis response must include emergency contacts")
	}
	if !strings.Contains(resp.Content, "Please stay with me.") {
		t.Error("crisis detection must augment, not replace, the agent reply")
	}
	if agent.calls != 1 {
		t.Errorf("agent must still be invoked on the crisis branch, calls = %d", agent.calls)
	}

	sess, _ := store.Get("s1")
	if sess.RiskLevel != 5 {
		t.Errorf("session risk = %d, want 5", sess.RiskLevel)
	}
	if sess.Category != sessionmodel.CategoryEmergency {
		t.Errorf("session category = %s, want emergency", sess.Category)
	}
}

func TestProcessTextMediumRiskNoPreamble(t *testing.T) {
	agent := &fakeAgent{tool: "none", reply: "Tell me more about that."}
	o, store := newTestOrchestrator(agent, nil, nil, nil)

	resp := o.ProcessText(context.Background(), "s1", "I feel hopeless")

	if resp.EmergencyFlag {
		t.Error("medium risk must not raise the emergency flag")
	}
	if strings.Contains(resp.Content, crisisImmediateResponse) {
		t.Error("medium risk must not prepend the crisis preamble")
	}
	if len(resp.ToolsUsed) != 0 {
		t.Errorf("no tool was invoked, got %v", resp.ToolsUsed)
	}

	sess, _ := store.Get("s1")
	if sess.RiskLevel != 3 {
		t.Errorf("session risk = %d, want 3", sess.RiskLevel)
	}
}

func TestSessionRiskMonotonic(t *testing.T) {
	agent := &fakeAgent{tool: "none", reply: "ok"}
	o, store := newTestOrchestrator(agent, nil, nil, nil)

	o.ProcessText(context.Background(), "s1", "I feel hopeless")
	o.ProcessText(context.Background(), "s1", "What a lovely day")

	sess, _ := store.Get("s1")
	if sess.RiskLevel != 3 {
		t.Errorf("session risk regressed to %d, want 3", sess.RiskLevel)
	}
}

func TestProcessTextAgentFailure(t *testing.T) {
	agent := &fakeAgent{err: errors.New("model unavailable")}
	o, _ := newTestOrchestrator(agent, nil, nil, nil)

	resp := o.ProcessText(context.Background(), "s1", "hello")

	if resp.Confidence != 0.0 {
		t.Errorf("degraded confidence = %v, want 0.0", resp.Confidence)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != "error_handler" {
		t.Errorf("unexpected tools: %v", resp.ToolsUsed)
	}
	if !resp.EmergencyFlag {
		t.Error("text pipeline failure must flag for safety")
	}
	if resp.Content == "" {
		t.Error("degraded response must be well formed")
	}
}

func TestProcessImage(t *testing.T) {
	vision := &fakeVision{analysis: "The colors suggest calm."}
	o, store := newTestOrchestrator(&fakeAgent{}, vision, nil, nil)

	resp, analysis := o.ProcessImage(context.Background(), "s1", "/tmp/a.png", "what do you see")

	if resp.Type != therapy.ArtTherapy {
		t.Errorf("unexpected response type: %s", resp.Type)
	}
	if resp.Confidence != 0.8 || analysis.Confidence != 0.8 {
		t.Errorf("confidence = %v/%v, want 0.8", resp.Confidence, analysis.Confidence)
	}
	if analysis.AnalysisText != "The colors suggest calm." {
		t.Errorf("unexpected analysis: %s", analysis.AnalysisText)
	}

	sess, _ := store.Get("s1")
	if len(sess.Turns) != 2 {
		t.Errorf("expected 2 turns, got %d", len(sess.Turns))
	}
}

func TestProcessImageFailure(t *testing.T) {
	vision := &fakeVision{err: errors.New("vision down")}
	o, _ := newTestOrchestrator(&fakeAgent{}, vision, nil, nil)

	resp, analysis := o.ProcessImage(context.Background(), "s1", "/tmp/a.png", "")

	if resp.Confidence != 0.0 || analysis.Confidence != 0.0 {
		t.Error("degraded image response must carry confidence 0.0")
	}
	if resp.Type != therapy.ArtTherapy {
		t.Errorf("degraded response keeps its modality type, got %s", resp.Type)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != "error_handler" {
		t.Errorf("unexpected tools: %v", resp.ToolsUsed)
	}
}

func TestProcessAudioTranscriptionOnly(t *testing.T) {
	transcriber := &fakeTranscriber{transcription: "I feel fine today"}
	agent := &fakeAgent{}
	o, _ := newTestOrchestrator(agent, nil, transcriber, nil)

	resp, analysis := o.ProcessAudio(context.Background(), "s1", "/tmp/a.wav", true)

	if resp.Content != "I feel fine today" {
		t.Errorf("unexpected content: %s", resp.Content)
	}
	if resp.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", resp.Confidence)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != "transcription_only" {
		t.Errorf("unexpected tools: %v", resp.ToolsUsed)
	}
	if analysis.UrgencyLevel != 1 {
		t.Errorf("urgency = %d, want 1", analysis.UrgencyLevel)
	}
	if agent.calls != 0 {
		t.Error("transcription-only must not invoke the agent")
	}
}

func TestProcessAudioFullPipeline(t *testing.T) {
	transcriber := &fakeTranscriber{transcription: "I feel hopeless"}
	agent := &fakeAgent{tool: "suggest_breathing_exercise", reply: "Let's breathe together."}
	o, store := newTestOrchestrator(agent, nil, transcriber, nil)

	resp, analysis := o.ProcessAudio(context.Background(), "s1", "/tmp/a.wav", false)

	if resp.Type != therapy.VoiceTherapy {
		t.Errorf("unexpected response type: %s", resp.Type)
	}
	if analysis.UrgencyLevel != 3 {
		t.Errorf("urgency = %d, want 3", analysis.UrgencyLevel)
	}
	if analysis.TherapeuticResponse != "Let's breathe together." {
		t.Errorf("unexpected therapeutic response: %s", analysis.TherapeuticResponse)
	}
	if len(resp.ToolsUsed) < 2 || resp.ToolsUsed[0] != "process_voice_message" {
		t.Errorf("tool list must be prefixed with the voice marker, got %v", resp.ToolsUsed)
	}

	sess, _ := store.Get("s1")
	if sess.RiskLevel != 3 {
		t.Errorf("risk from transcription must reach the session, got %d", sess.RiskLevel)
	}
}

func TestProcessAudioFailure(t *testing.T) {
	transcriber := &fakeTranscriber{err: errors.New("asr down")}
	o, _ := newTestOrchestrator(&fakeAgent{}, nil, transcriber, nil)

	resp, analysis := o.ProcessAudio(context.Background(), "s1", "/tmp/a.wav", false)

	if resp.Confidence != 0.0 {
		t.Errorf("degraded confidence = %v, want 0.0", resp.Confidence)
	}
	if analysis.Transcription != "Error occurred during transcription" {
		t.Errorf("unexpected sentinel: %s", analysis.Transcription)
	}
	if analysis.UrgencyLevel != 1 {
		t.Errorf("urgency = %d, want 1", analysis.UrgencyLevel)
	}
}

func TestMultimodalImageAndText(t *testing.T) {
	agent := &fakeAgent{tool: "ask_medical_knowledge_base", reply: "Here is what I found."}
	vision := &fakeVision{analysis: "A stormy sky."}
	o, store := newTestOrchestrator(agent, vision, nil, nil)

	resp := o.ProcessMultimodal(context.Background(), "s1", "How does this look?", "/tmp/a.png", "")

	imageIdx := strings.Index(resp.Content, "Image Analysis: A stormy sky.")
	textIdx := strings.Index(resp.Content, "AI Response: Here is what I found.")
	if imageIdx < 0 || textIdx < 0 {
		t.Fatalf("missing fragment headers in: %s", resp.Content)
	}
	if imageIdx > textIdx {
		t.Error("fragments must appear in image, text order")
	}
	if !strings.Contains(resp.Content, "\n\n") {
		t.Error("fragments must be joined with a double line break")
	}
	if resp.Confidence != 0.8 {
		t.Errorf("confidence = %v, want max of fragments (0.8)", resp.Confidence)
	}
	if resp.EmergencyFlag {
		t.Error("no fragment flagged, composition must not flag")
	}

	sess, _ := store.Get("s1")
	if len(sess.Turns) != 1 {
		t.Errorf("multimodal must record one composite turn, got %d", len(sess.Turns))
	}
	if sess.Turns[0].Modality != sessionmodel.ModalityMultimodal {
		t.Errorf("composite turn modality = %s", sess.Turns[0].Modality)
	}
}

func TestMultimodalAudioSubstitutesText(t *testing.T) {
	transcriber := &fakeTranscriber{transcription: "I feel anxious about work"}
	agent := &fakeAgent{tool: "suggest_breathing_exercise", reply: "Try box breathing."}
	o, _ := newTestOrchestrator(agent, nil, transcriber, nil)

	resp := o.ProcessMultimodal(context.Background(), "s1", "", "", "/tmp/a.wav")

	if !strings.Contains(resp.Content, "Voice Analysis: ") {
		t.Error("missing voice fragment")
	}
	if !strings.Contains(resp.Content, "AI Response: Try box breathing.") {
		t.Error("transcription must feed the text step when no text was supplied")
	}

	want := map[string]bool{"process_voice_message": false, "suggest_breathing_exercise": false}
	for _, tool := range resp.ToolsUsed {
		if _, ok := want[tool]; ok {
			want[tool] = true
		}
	}
	for tool, seen := range want {
		if !seen {
			t.Errorf("composed tool list missing %s, got %v", tool, resp.ToolsUsed)
		}
	}
}

func TestMultimodalEmergencyPropagates(t *testing.T) {
	transcriber := &fakeTranscriber{transcription: "I want to end it all"}
	agent := &fakeAgent{tool: "emergency_call_tool", reply: "Please call 988 now."}
	o, _ := newTestOrchestrator(agent, nil, transcriber, nil)

	resp := o.ProcessMultimodal(context.Background(), "s1", "", "", "/tmp/a.wav")

	if !resp.EmergencyFlag {
		t.Error("emergency flag must propagate from the derived text step")
	}
	if !strings.Contains(resp.Content, crisisImmediateResponse) {
		t.Error("composition must carry the crisis preamble from the text fragment")
	}
}

func TestMultimodalNoInput(t *testing.T) {
	o, store := newTestOrchestrator(&fakeAgent{}, nil, nil, nil)

	resp := o.ProcessMultimodal(context.Background(), "s1", "", "", "")

	if resp.Content != noInputResponse {
		t.Errorf("unexpected content: %s", resp.Content)
	}
	if resp.Confidence != 0.0 || resp.EmergencyFlag {
		t.Error("empty composition must be neutral")
	}

	sess, _ := store.Get("s1")
	if len(sess.Turns) != 0 {
		t.Errorf("empty composition must not record a turn, got %d", len(sess.Turns))
	}
}

func TestMultimodalPartialFailureDoesNotAbort(t *testing.T) {
	vision := &fakeVision{err: errors.New("vision down")}
	agent := &fakeAgent{tool: "none", reply: "Still here for you."}
	o, _ := newTestOrchestrator(agent, vision, nil, nil)

	resp := o.ProcessMultimodal(context.Background(), "s1", "hello", "/tmp/a.png", "")

	if !strings.Contains(resp.Content, "AI Response: Still here for you.") {
		t.Error("text fragment must survive an image failure")
	}
	if !strings.Contains(resp.Content, "Image Analysis: ") {
		t.Error("failed fragment still contributes its degraded content")
	}
	if resp.Confidence != 0.8 {
		t.Errorf("confidence = %v, want 0.8 from the surviving fragment", resp.Confidence)
	}
}

func TestRegenerateReplacesAssistantTurn(t *testing.T) {
	agent := &fakeAgent{tool: "none", reply: "first take"}
	o, store := newTestOrchestrator(agent, nil, nil, nil)

	o.ProcessText(context.Background(), "s1", "tell me something kind")

	agent.reply = "second take"
	resp, ok := o.Regenerate(context.Background(), "s1")
	if !ok {
		t.Fatal("Regenerate should succeed after a reply")
	}
	if resp.Content != "second take" {
		t.Errorf("unexpected content: %s", resp.Content)
	}

	sess, _ := store.Get("s1")
	if len(sess.Turns) != 2 {
		t.Fatalf("turn count = %d, want 2 (assistant replaced, not appended)", len(sess.Turns))
	}
	if sess.Turns[1].Content != "second take" {
		t.Errorf("assistant turn not replaced: %s", sess.Turns[1].Content)
	}
}

func TestRegenerateWithoutReply(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeAgent{}, nil, nil, nil)
	if _, ok := o.Regenerate(context.Background(), "s1"); ok {
		t.Error("Regenerate must fail for an unseen session")
	}
}

func TestGenerateVoice(t *testing.T) {
	voice := &fakeVoice{audioRef: "/tmp/out.mp3"}
	o, _ := newTestOrchestrator(&fakeAgent{}, nil, nil, voice)

	audioRef, premium, err := o.GenerateVoice(context.Background(), "hello", true)
	if err != nil {
		t.Fatalf("GenerateVoice failed: %v", err)
	}
	if audioRef != "/tmp/out.mp3" || !premium {
		t.Errorf("unexpected result: %s premium=%v", audioRef, premium)
	}
}

func TestClearUnknownSession(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeAgent{}, nil, nil, nil)
	if o.ClearSession("never-seen-id") {
		t.Error("clearing an unknown session must return false")
	}
	if o.EndSession("never-seen-id") != nil {
		t.Error("ending an unknown session must return nil")
	}
}

func TestGetStatus(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeAgent{}, &fakeVision{}, nil, &fakeVoice{})
	o.ProcessText(context.Background(), "s1", "hello")

	status := o.GetStatus()
	if status.ActiveSessions != 1 {
		t.Errorf("active sessions = %d, want 1", status.ActiveSessions)
	}
	if !status.Providers["agent"] || !status.Providers["vision"] || !status.Providers["voice"] {
		t.Errorf("unexpected providers: %v", status.Providers)
	}
	if status.Providers["transcriber"] {
		t.Error("transcriber should report unconfigured")
	}
}
