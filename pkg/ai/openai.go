package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecolearn",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of AI provider requests",
	}, []string{"model", "operation"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecolearn",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed or unusable AI provider replies",
	}, []string{"model", "operation"})
)

// OpenAIConfig defines configuration options for the OpenAI assistant.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIAssistant implements Assistant against the OpenAI chat completion API.
type OpenAIAssistant struct {
	client *openai.Client
	cfg    OpenAIConfig
	schema *jsonschema.Schema
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAssistant builds a new assistant using the provided configuration.
func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 700
	}

	schema, err := compileRubricSchema()
	if err != nil {
		return nil, err
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIAssistant{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		schema: schema,
		tracer: otel.Tracer("github.com/ecolearn/ecolearn-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_assistant").Logger(),
	}, nil
}

// EvaluateRubric asks the model for per-criterion scores and feedback.
func (a *OpenAIAssistant) EvaluateRubric(parent context.Context, input RubricInput) (RubricEvaluation, error) {
	ctx, span := a.tracer.Start(parent, "openai.evaluate_rubric", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	content, err := a.complete(ctx, "evaluate_rubric", rubricSystemPrompt(), buildRubricPrompt(input), true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RubricEvaluation{}, err
	}

	evaluation, err := parseRubricReply(a.schema, content)
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model, "evaluate_rubric").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Warn().Err(err).Msg("discarding unusable rubric evaluation")
		return RubricEvaluation{}, err
	}

	evaluation.Model = a.cfg.Model
	return evaluation, nil
}

// GenerateAnswer asks the model for an exemplary answer to the assignment.
func (a *OpenAIAssistant) GenerateAnswer(parent context.Context, input AnswerInput) (Answer, error) {
	ctx, span := a.tracer.Start(parent, "openai.generate_answer", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	content, err := a.complete(ctx, "generate_answer", answerSystemPrompt(), buildAnswerPrompt(input), false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Answer{}, err
	}

	return Answer{Text: content, Model: a.cfg.Model}, nil
}

func (a *OpenAIAssistant) complete(ctx context.Context, operation, system, user string, jsonReply bool) (string, error) {
	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonReply {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(a.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		return "", fmt.Errorf("openai %s: %w", operation, err)
	}

	if len(resp.Choices) == 0 {
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		return "", fmt.Errorf("no choices returned from openai")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		return "", fmt.Errorf("empty reply from openai")
	}

	a.logger.Debug().
		Str("operation", operation).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("openai completion finished")

	return content, nil
}

func rubricSystemPrompt() string {
	return "You help K-12 teachers grade student work. Score the submission on four criteria, each from 0 to 100: " +
		"content_accuracy, uniqueness, relevance and quality. Respond with a JSON object " +
		`{"criteria": {"content_accuracy": n, "uniqueness": n, "relevance": n, "quality": n}, "feedback": "..."}. ` +
		"Feedback is addressed to the student, encouraging and specific."
}

func buildRubricPrompt(input RubricInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Assignment\n")
	builder.WriteString(input.AssignmentTitle)
	if input.Category != "" {
		builder.WriteString("\n\n## Category\n")
		builder.WriteString(input.Category)
	}
	builder.WriteString("\n\n## Instructions\n")
	builder.WriteString(input.AssignmentDescription)
	if len(input.Weights) > 0 {
		builder.WriteString("\n\n## Rubric weights (percent)\n")
		keys := make([]string, 0, len(input.Weights))
		for key := range input.Weights {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			builder.WriteString(fmt.Sprintf("- %s: %d\n", key, input.Weights[key]))
		}
	}
	builder.WriteString("\n\n## Submission\n")
	builder.WriteString(input.SubmissionContent)
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func answerSystemPrompt() string {
	return "You write exemplary answers for K-12 environmental education assignments. " +
		"Answer at the level of the stated grade, in plain prose, without headings about yourself."
}

func buildAnswerPrompt(input AnswerInput) string {
	builder := strings.Builder{}
	builder.WriteString("# Assignment\n")
	builder.WriteString(input.Title)
	if input.GradeLevel > 0 {
		builder.WriteString(fmt.Sprintf("\n\n## Grade level\n%d", input.GradeLevel))
	}
	if input.Category != "" {
		builder.WriteString("\n\n## Category\n")
		builder.WriteString(input.Category)
	}
	builder.WriteString("\n\n## Instructions\n")
	builder.WriteString(input.Description)
	return builder.String()
}
