package analyzer

import (
	"context"
	"fmt"

	"github.com/helmcode/labs-ai/pkg/labs"
	"github.com/helmcode/labs-ai/pkg/llm"
	"github.com/helmcode/labs-ai/pkg/merger"
	"github.com/helmcode/labs-ai/pkg/model"
	"github.com/helmcode/labs-ai/pkg/parser"
	"github.com/helmcode/labs-ai/pkg/prompts"
)

const Source = "llm"

// Analyzer produces panel narratives straight from an LLM provider. It
// satisfies merger.Service.
type Analyzer struct {
	llm         llm.LLM
	categorizer *labs.Categorizer
}

var _ merger.Service = (*Analyzer)(nil)

func NewWithProvider(provider llm.Provider, config map[string]string, categorizer *labs.Categorizer) (*Analyzer, error) {
	llmInstance, err := llm.NewFactory().CreateLLM(provider, config)
	if err != nil {
		return nil, err
	}
	return NewWithLLM(llmInstance, categorizer), nil
}

// NewFromEnv picks the provider and credentials from the environment, with
// optional provider and model overrides.
func NewFromEnv(provider, modelName string, categorizer *labs.Categorizer) (*Analyzer, error) {
	llmInstance, err := llm.CreateFromEnv(provider, modelName)
	if err != nil {
		return nil, err
	}
	return NewWithLLM(llmInstance, categorizer), nil
}

func NewWithLLM(l llm.LLM, categorizer *labs.Categorizer) *Analyzer {
	return &Analyzer{llm: l, categorizer: categorizer}
}

func (a *Analyzer) Model() string {
	return a.llm.GetModel()
}

func (a *Analyzer) Analyze(ctx context.Context, panel model.Panel) (*model.RemoteAnalysis, error) {
	prompt, err := prompts.BuildLabPrompt(panel, a.categorizer.Categorize(panel))
	if err != nil {
		return nil, err
	}

	rawResp, err := a.llm.Chat(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: LLM chat: %w", merger.ErrRemoteAnalysis, err)
	}

	analysis := parser.ParseLabResponse(rawResp)
	if analysis.Narrative == "" {
		return nil, fmt.Errorf("%w: empty LLM response", merger.ErrRemoteAnalysis)
	}
	analysis.Source = Source
	return analysis, nil
}
