// Package qa answers weather questions with an LLM grounded on a reduced NWS forecast.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-qa/internal/weather"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrEmptyQuestion is returned when Ask is called without a question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrInvalidHistory is returned when a prior turn has an unknown role.
	ErrInvalidHistory = errors.New("invalid conversation history")
)

var validate = validator.New()

// Turn is one prior message of the conversation.
type Turn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content"`
}

// Prompt is everything a Generator needs for one answer.
type Prompt struct {
	System   string
	Context  string // reduced forecast JSON, embedded verbatim
	History  []Turn
	Question string
}

// Generator is the model boundary. Implementations stream text chunks to onChunk
// and return the concatenated answer.
type Generator interface {
	Name() string
	GenerateStream(ctx context.Context, p Prompt, onChunk func(string) error) (string, error)
}

// Orchestrator builds prompts from the reduced dataset and conversation history.
type Orchestrator struct {
	gen    Generator
	logger *zap.SugaredLogger
}

func NewOrchestrator(gen Generator, logger *zap.SugaredLogger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Orchestrator{gen: gen, logger: logger}
}

// SystemInstruction is the fixed meteorologist instruction for a given local date.
func SystemInstruction(today time.Time, windowHours int) string {
	return fmt.Sprintf(
		"You are an expert meteorologist. Today is %s. "+
			"Use the prior context and the provided hyperlocal NWS dataset (%dh window) to answer accurately.",
		today.Format("Monday January 02, 2006"), windowHours)
}

// BuildPrompt assembles the prompt for one question.
func BuildPrompt(reduced weather.ReducedForecastDataset, history []Turn, question string, today time.Time, windowHours int) (Prompt, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Prompt{}, ErrEmptyQuestion
	}
	body, err := reduced.JSON()
	if err != nil {
		return Prompt{}, fmt.Errorf("encode reduced forecast: %w", err)
	}
	for i, t := range history {
		if err := validate.Struct(t); err != nil {
			return Prompt{}, fmt.Errorf("%w: turn %d: %v", ErrInvalidHistory, i, err)
		}
	}
	hist := make([]Turn, len(history))
	copy(hist, history)
	return Prompt{
		System:   SystemInstruction(today, windowHours),
		Context:  string(body),
		History:  hist,
		Question: question,
	}, nil
}

// Ask streams an answer for question. today should already be in the forecast time zone.
func (o *Orchestrator) Ask(
	ctx context.Context,
	reduced weather.ReducedForecastDataset,
	history []Turn,
	question string,
	today time.Time,
	windowHours int,
	onChunk func(string) error,
) (string, error) {
	if o.gen == nil {
		return "", fmt.Errorf("no answer generator configured")
	}

	prompt, err := BuildPrompt(reduced, history, question, today, windowHours)
	if err != nil {
		return "", err
	}

	start := time.Now()
	answer, err := o.gen.GenerateStream(ctx, prompt, onChunk)
	if err != nil {
		o.logger.Errorw("answer generation failed",
			"generator", o.gen.Name(), "turns", len(history), "error", err)
		return answer, fmt.Errorf("%s request failed: %w", o.gen.Name(), err)
	}

	o.logger.Infow("question answered",
		"generator", o.gen.Name(),
		"turns", len(history),
		"contextBytes", len(prompt.Context),
		"answerBytes", len(answer),
		"elapsed", time.Since(start))
	return answer, nil
}
