package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"

	"github.com/safespace/safespace-agent/internal/service/knowledge"
	"github.com/safespace/safespace-agent/internal/service/locator"
	"github.com/safespace/safespace-agent/internal/service/search"
	"github.com/safespace/safespace-agent/internal/service/telephony"
)

// Toolbox bundles the capability clients the agent's tools delegate to.
type Toolbox struct {
	Knowledge  *knowledge.Store
	Search     *search.Client
	Locator    *locator.Client
	Phone      *telephony.Client
	AffirmURL  string
	HTTPClient *http.Client
}

type queryInput struct {
	Query string `json:"query" jsonschema:"description=the user's question"`
}

type topicInput struct {
	Topic string `json:"topic" jsonschema:"description=the mental health topic to research"`
}

type locationInput struct {
	Location string `json:"location" jsonschema:"description=city or area to search, e.g. 'Portland, Oregon'"`
}

type emptyInput struct{}

// BuildTools assembles the agent tool set. Every tool records its own name
// before running so the orchestrator can report which tool was used.
func (tb *Toolbox) BuildTools() ([]tool.BaseTool, error) {
	if tb.HTTPClient == nil {
		tb.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	knowledgeTool, err := utils.InferTool(
		"ask_medical_knowledge_base",
		"Answer specific medical questions by searching the private knowledge base of trusted medical documents that have been uploaded.",
		func(ctx context.Context, in queryInput) (string, error) {
			recorderFrom(ctx).Record("ask_medical_knowledge_base")
			return tb.knowledgeAnswer(ctx, in.Query)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build knowledge tool: %w", err)
	}

	webTool, err := utils.InferTool(
		"ask_web_for_health_info",
		"Search the web for answers to health-related questions.",
		func(ctx context.Context, in queryInput) (string, error) {
			recorderFrom(ctx).Record("ask_web_for_health_info")
			return tb.Search.Search(ctx, "psychological and emotional context for: "+in.Query)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build web search tool: %w", err)
	}

	articlesTool, err := utils.InferTool(
		"find_mental_health_articles",
		"Find recent articles or studies on a specific mental health topic such as mindfulness, CBT or burnout.",
		func(ctx context.Context, in topicInput) (string, error) {
			recorderFrom(ctx).Record("find_mental_health_articles")
			return tb.Search.Search(ctx, "latest research articles on "+in.Topic+" in mental health")
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build articles tool: %w", err)
	}

	therapistTool, err := utils.InferTool(
		"find_nearby_therapists_by_location",
		"Find licensed therapists near a specified city or area using OpenStreetMap.",
		func(ctx context.Context, in locationInput) (string, error) {
			recorderFrom(ctx).Record("find_nearby_therapists_by_location")
			return tb.Locator.FindTherapists(ctx, in.Location)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build therapist locator tool: %w", err)
	}

	emergencyTool, err := utils.InferTool(
		"emergency_call_tool",
		"Place an emergency call to a safety helpline. Use ONLY when the user expresses suicidal ideation, intent to self-harm, or a mental health emergency requiring immediate help.",
		func(ctx context.Context, _ emptyInput) (string, error) {
			recorderFrom(ctx).Record("emergency_call_tool")
			confirmation, err := tb.Phone.PlaceEmergencyCall(ctx)
			if err != nil {
				// The model still needs usable output when the telephony
				// provider is down or unconfigured.
				return "There was an error initiating the emergency call. Please contact emergency services directly.", nil
			}
			return confirmation, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build emergency call tool: %w", err)
	}

	affirmationTool, err := utils.InferTool(
		"get_daily_affirmation",
		"Provide a positive daily affirmation, for when the user is feeling down or explicitly asks for one.",
		func(ctx context.Context, _ emptyInput) (string, error) {
			recorderFrom(ctx).Record("get_daily_affirmation")
			return tb.fetchAffirmation(ctx), nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build affirmation tool: %w", err)
	}

	breathingTool, err := utils.InferTool(
		"suggest_breathing_exercise",
		"Offer a simple guided breathing exercise for calming anxiety, panic or feeling overwhelmed.",
		func(ctx context.Context, _ emptyInput) (string, error) {
			recorderFrom(ctx).Record("suggest_breathing_exercise")
			return boxBreathingScript, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build breathing tool: %w", err)
	}

	return []tool.BaseTool{
		knowledgeTool,
		webTool,
		articlesTool,
		therapistTool,
		emergencyTool,
		affirmationTool,
		breathingTool,
	}, nil
}

const boxBreathingScript = `Let's try a simple calming exercise. It's called Box Breathing:
1. Breathe in slowly for a count of 4.
2. Hold your breath for a count of 4.
3. Breathe out slowly for a count of 4.
4. Hold at the bottom for a count of 4.
Repeat this a few times. It can help slow your heart rate and calm your mind.`

func (tb *Toolbox) knowledgeAnswer(ctx context.Context, query string) (string, error) {
	passages, err := tb.Knowledge.Retrieve(ctx, query, 3)
	if err != nil {
		return "", fmt.Errorf("knowledge base lookup failed: %w", err)
	}
	if len(passages) == 0 {
		return "I could not find any relevant information in the uploaded documents.", nil
	}

	out := "From the uploaded medical literature:\n"
	for _, p := range passages {
		out += "- " + p + "\n"
	}
	return out, nil
}

func (tb *Toolbox) fetchAffirmation(ctx context.Context) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tb.AffirmURL, nil)
	if err != nil {
		return "Focus on your strengths today; you have many."
	}

	resp, err := tb.HTTPClient.Do(req)
	if err != nil {
		return "Focus on your strengths today; you have many."
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "Remember that you are capable and strong."
	}

	var parsed struct {
		Affirmation string `json:"affirmation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Affirmation == "" {
		return "Remember that you are capable and strong."
	}
	return parsed.Affirmation
}
