package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"drawflow-backend/internal/model"
	"drawflow-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const validationPrompt = `You review rendered diagrams for layout problems.
Look at the image and report overlapping shapes, edges crossing through shapes,
labels that are cut off or unreadable, and elements outside the canvas.
Reply with JSON only, in this shape:
{"valid": true|false, "issues": ["..."], "suggestions": ["..."]}
A diagram with no problems is valid with empty lists.`

// Validator asks a vision model whether a rendered diagram looks right. Only
// the newest request is meaningful: starting one cancels the previous one.
type Validator struct {
	runnable compose.Runnable[string, *model.ValidationResult]

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelCauseFunc
}

// NewValidator compiles the validation graph around cm. A nil cm yields a
// Validator that reports ErrValidationDisabled.
func NewValidator(ctx context.Context, cm einoModel.ChatModel) (*Validator, error) {
	if cm == nil {
		return &Validator{}, nil
	}

	runnable, err := composeValidationGraph(ctx, cm)
	if err != nil {
		return nil, fmt.Errorf("compose validation graph: %w", err)
	}
	return &Validator{runnable: runnable}, nil
}

func (v *Validator) Enabled() bool {
	return v.runnable != nil
}

func composeValidationGraph(ctx context.Context, cm einoModel.ChatModel) (compose.Runnable[string, *model.ValidationResult], error) {
	g := compose.NewGraph[string, *model.ValidationResult]()

	if err := g.AddLambdaNode("BuildPrompt", compose.InvokableLambda(buildValidationMessages)); err != nil {
		return nil, err
	}
	if err := g.AddChatModelNode("VisionModel", cm); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("ParseVerdict", compose.InvokableLambda(parseValidationVerdict)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, "BuildPrompt"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("BuildPrompt", "VisionModel"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("VisionModel", "ParseVerdict"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("ParseVerdict", compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx)
}

func buildValidationMessages(ctx context.Context, image string) ([]*schema.Message, error) {
	if !strings.HasPrefix(image, "data:image/") {
		return nil, fmt.Errorf("validation image is not a data URL")
	}

	return []*schema.Message{
		schema.SystemMessage(validationPrompt),
		{
			Role: schema.User,
			MultiContent: []schema.ChatMessagePart{
				{Type: schema.ChatMessagePartTypeText, Text: "Check this diagram."},
				{Type: schema.ChatMessagePartTypeImageURL, ImageURL: &schema.ChatMessageImageURL{URL: image}},
			},
		},
	}, nil
}

func parseValidationVerdict(ctx context.Context, msg *schema.Message) (*model.ValidationResult, error) {
	content := msg.Content
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var result model.ValidationResult
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}
	if result.Issues == nil {
		result.Issues = []string{}
	}
	if result.Suggestions == nil {
		result.Suggestions = []string{}
	}
	return &result, nil
}

// Validate checks the PNG data URL image. A call still running when a newer
// one starts returns ErrValidationSuperseded.
func (v *Validator) Validate(ctx context.Context, image string) (*model.ValidationResult, error) {
	if v.runnable == nil {
		return nil, ErrValidationDisabled
	}

	ctx, cancel := context.WithCancelCause(ctx)

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel(ErrValidationSuperseded)
	}
	v.gen++
	gen := v.gen
	v.cancel = cancel
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		if v.gen == gen {
			v.cancel = nil
		}
		v.mu.Unlock()
		cancel(nil)
	}()

	result, err := v.runnable.Invoke(ctx, image)
	if cause := context.Cause(ctx); errors.Is(cause, ErrValidationSuperseded) {
		return nil, ErrValidationSuperseded
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateWithFallback never fails: any error other than supersession yields
// the default valid result so a broken check never blocks the user.
func (v *Validator) ValidateWithFallback(ctx context.Context, image string) (*model.ValidationResult, error) {
	result, err := v.Validate(ctx, image)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, ErrValidationSuperseded):
		return nil, err
	case errors.Is(err, ErrValidationDisabled):
		return model.DefaultValidResult(), nil
	default:
		logger.Warnf("Diagram validation failed, assuming valid: %v", err)
		return model.DefaultValidResult(), nil
	}
}
