package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the service.
type Config struct {
	Server    ServerConfig
	Agent     AgentConfig
	Speech    SpeechConfig
	Twilio    TwilioConfig
	Providers ProviderConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	providers, err := loadProviderConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Agent:     agent,
		Speech:    speech,
		Twilio:    loadTwilioConfig(),
		Providers: providers,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AgentConfig describes the Ark chat model backing the agent and the
// vision analysis. VisionModel falls back to Model when unset.
type AgentConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	VisionModel  string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	HistoryLimit int
	MaxSteps     int
}

// Enabled reports whether the required credentials are present.
func (c AgentConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates the conversational model instance.
func (c AgentConfig) NewChatModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	return c.newModel(ctx, c.Model)
}

// NewVisionModel creates the model used for image analysis.
func (c AgentConfig) NewVisionModel(ctx context.Context) (model.ToolCallingChatModel, error) {
	name := c.VisionModel
	if name == "" {
		name = c.Model
	}
	return c.newModel(ctx, name)
}

func (c AgentConfig) newModel(ctx context.Context, name string) (model.ToolCallingChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + ARK_MODEL, or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       name,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAgentConfig() (AgentConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AgentConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AgentConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AgentConfig{}, err
	}

	historyLimit := 20
	if override, err := parseOptionalIntEnv("AGENT_HISTORY_LIMIT"); err != nil {
		return AgentConfig{}, err
	} else if override != nil && *override > 0 {
		historyLimit = *override
	}

	maxSteps := 8
	if override, err := parseOptionalIntEnv("AGENT_MAX_STEPS"); err != nil {
		return AgentConfig{}, err
	} else if override != nil && *override > 0 {
		maxSteps = *override
	}

	return AgentConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("ARK_MODEL")),
		VisionModel:  strings.TrimSpace(os.Getenv("ARK_VISION_MODEL")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		HistoryLimit: historyLimit,
		MaxSteps:     maxSteps,
	}, nil
}

// SpeechConfig describes the transcription and synthesis providers.
type SpeechConfig struct {
	AppID       string
	AccessToken string
	TTSVoice    string
	TTSLanguage string
	ASRLanguage string
	FreeTTSURL  string
	Enabled     bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))

	return SpeechConfig{
		AppID:       appID,
		AccessToken: accessToken,
		TTSVoice:    getEnvOrDefault("SPEECH_TTS_VOICE", "en_female_amy_jupiter_bigtts"),
		TTSLanguage: getEnvOrDefault("SPEECH_TTS_LANGUAGE", "en"),
		ASRLanguage: getEnvOrDefault("SPEECH_ASR_LANGUAGE", "en-US"),
		FreeTTSURL:  getEnvOrDefault("SPEECH_FREE_TTS_URL", "https://translate.google.com/translate_tts"),
		Enabled:     appID != "" && accessToken != "",
	}, nil
}

// TwilioConfig describes the emergency call provider.
type TwilioConfig struct {
	AccountSID       string
	AuthToken        string
	FromNumber       string
	EmergencyContact string
}

// Enabled reports whether emergency calls can be placed.
func (c TwilioConfig) Enabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != "" && c.EmergencyContact != ""
}

func loadTwilioConfig() TwilioConfig {
	return TwilioConfig{
		AccountSID:       strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:        strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		FromNumber:       strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
		EmergencyContact: strings.TrimSpace(os.Getenv("EMERGENCY_CONTACT")),
	}
}

// ProviderConfig bounds every external capability call and points the
// outbound HTTP tools at their endpoints.
type ProviderConfig struct {
	Timeout     time.Duration
	SearchURL   string
	GeocodeURL  string
	OverpassURL string
	AffirmURL   string
}

func loadProviderConfig() (ProviderConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("PROVIDER_TIMEOUT"); err != nil {
		return ProviderConfig{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	return ProviderConfig{
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		SearchURL:   getEnvOrDefault("SEARCH_BASE_URL", "https://html.duckduckgo.com/html/"),
		GeocodeURL:  getEnvOrDefault("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		OverpassURL: getEnvOrDefault("OVERPASS_BASE_URL", "https://overpass-api.de/api/interpreter"),
		AffirmURL:   getEnvOrDefault("AFFIRMATION_URL", "https://www.affirmations.dev"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
