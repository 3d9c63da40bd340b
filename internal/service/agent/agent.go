package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/safespace/safespace-agent/internal/config"
	sessionmodel "github.com/safespace/safespace-agent/internal/model/session"
)

// Service wraps a tool-using ReAct agent over the configured chat model.
type Service struct {
	agent        *react.Agent
	historyLimit int
}

// NewService compiles the agent graph with the toolbox's tool set.
func NewService(ctx context.Context, chatModel model.ToolCallingChatModel, toolbox *Toolbox, cfg config.AgentConfig) (*Service, error) {
	tools, err := toolbox.BuildTools()
	if err != nil {
		return nil, err
	}

	ra, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: chatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: tools,
		},
		MaxStep: cfg.MaxSteps,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build react agent: %w", err)
	}

	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 20
	}

	return &Service{agent: ra, historyLimit: historyLimit}, nil
}

// GenerateReply runs one agent turn over the session history plus the new
// user message. It returns the name of the tool the model chose (or "none")
// and the generated reply text.
func (s *Service) GenerateReply(ctx context.Context, history []sessionmodel.Turn, userMessage string) (string, string, error) {
	messages := s.buildMessages(history, userMessage)

	ctx, recorder := WithRecorder(ctx)
	out, err := s.agent.Generate(ctx, messages)
	if err != nil {
		return "", "", fmt.Errorf("agent generation failed: %w", err)
	}

	toolCalled := recorder.Last()
	log.Printf("[agent] reply generated, tool=%s, length=%d", toolCalled, len(out.Content))
	return toolCalled, out.Content, nil
}

func (s *Service) buildMessages(history []sessionmodel.Turn, userMessage string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))

	startIdx := 0
	if len(history) > s.historyLimit {
		startIdx = len(history) - s.historyLimit
	}

	for _, turn := range history[startIdx:] {
		switch turn.Role {
		case sessionmodel.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case sessionmodel.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}

	messages = append(messages, schema.UserMessage(userMessage))
	return messages
}
