package vision

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultQuery is used when the caller uploads an image without a prompt.
const DefaultQuery = "Please analyze this image for mental health insights"

const visionSystemPrompt = `You are an art therapist. Describe what the image may express emotionally,
note colors, symbols and mood, and offer gentle therapeutic insights. Do not
diagnose; suggest reflection prompts the person could explore.`

// Service analyzes images through a multimodal chat model.
type Service struct {
	chatModel model.BaseChatModel
}

// NewService wraps the given multimodal-capable model.
func NewService(chatModel model.BaseChatModel) *Service {
	return &Service{chatModel: chatModel}
}

// AnalyzeImage sends the image reference plus query to the vision model and
// returns the analysis text. imageRef may be a URL or a data URI.
func (s *Service) AnalyzeImage(ctx context.Context, imageRef, query string) (string, error) {
	if strings.TrimSpace(imageRef) == "" {
		return "", fmt.Errorf("image reference is empty")
	}
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}

	messages := []*schema.Message{
		schema.SystemMessage(visionSystemPrompt),
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{
					Type: schema.ChatMessagePartTypeImageURL,
					ImageURL: &schema.ChatMessageImageURL{
						URL: imageRef,
					},
				},
				{
					Type: schema.ChatMessagePartTypeText,
					Text: query,
				},
			},
		},
	}

	out, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("vision analysis failed: %w", err)
	}

	log.Printf("[vision] analyzed image, response length=%d", len(out.Content))
	return out.Content, nil
}
