package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"stock-sentinel/internal/errors"
	"stock-sentinel/internal/models"
)

const scoringSystemPrompt = `You are a financial sentiment analyst. Given recent news headlines
about a stock, respond with a JSON object only, no prose:
{"score": <float in [-1,1], negative=bearish>, "confidence": <float in [0,1]>}`

// OpenAIScorer scores sentiment by asking an LLM to read recent headlines.
type OpenAIScorer struct {
	client *openai.Client
	model  string
	news   NewsSource
}

// NewOpenAIScorer creates a scorer backed by the OpenAI API.
func NewOpenAIScorer(apiKey, model string, news NewsSource) *OpenAIScorer {
	return &OpenAIScorer{
		client: openai.NewClient(apiKey),
		model:  model,
		news:   news,
	}
}

type scoreResponse struct {
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Score fetches recent headlines and asks the model for a sentiment read.
// Any failure maps to ErrSentimentUnavailable so the gate can fail open.
func (s *OpenAIScorer) Score(ctx context.Context, subject models.Subject) (Sentiment, error) {
	headlines, err := s.news.RecentHeadlines(ctx, subject)
	if err != nil {
		return Sentiment{}, errors.Wrap(errors.ErrSentimentUnavailable, err.Error())
	}
	if len(headlines) == 0 {
		return Sentiment{}, errors.Wrapf(errors.ErrSentimentUnavailable, "no recent headlines for %s", subject)
	}
	if len(headlines) > 10 {
		headlines = headlines[:10]
	}

	prompt := fmt.Sprintf("Headlines for %s:\n%s", subject, strings.Join(headlines, "\n"))

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scoringSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Sentiment{}, errors.Wrap(errors.ErrSentimentUnavailable, err.Error())
	}
	if len(resp.Choices) == 0 {
		return Sentiment{}, errors.Wrap(errors.ErrSentimentUnavailable, "empty completion")
	}

	var parsed scoreResponse
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "`\n ")
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Sentiment{}, errors.Wrapf(errors.ErrSentimentUnavailable, "unparseable completion: %v", err)
	}

	score := clampScore(parsed.Score)
	return Sentiment{
		Subject:    subject,
		Label:      LabelForScore(score),
		Score:      score,
		Confidence: parsed.Confidence,
	}, nil
}
