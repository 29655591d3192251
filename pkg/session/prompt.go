package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/itohio/gocapmeter/pkg/config"
)

// Prompt is an in-band question the instrument asks the operator.
type Prompt struct {
	Prefix     string // Lines starting with Prefix trigger the prompt
	Label      string // Shown to the operator
	Terminator string // Appended to the answer before it is sent
}

// promptsFromConfig converts configured prompts, falling back to the meter's two questions.
func promptsFromConfig(cfgs []config.PromptConfig) []Prompt {
	if len(cfgs) == 0 {
		cfgs = config.DefaultPrompts()
	}
	prompts := make([]Prompt, len(cfgs))
	for i, c := range cfgs {
		prompts[i] = Prompt(c)
	}
	return prompts
}

// Matches reports whether line asks this prompt's question.
func (p Prompt) Matches(line string) bool {
	return strings.HasPrefix(line, p.Prefix)
}

// relay asks the operator and sends the answer back to the instrument.
// It blocks until the operator answers or ctx is done.
func (s *Session) relay(ctx context.Context, p Prompt) error {
	text, err := s.operator.Ask(ctx, p.Label)
	if err != nil {
		return fmt.Errorf("prompt %q: %w", p.Prefix, err)
	}

	payload := []byte(text + p.Terminator)
	if err := s.port.Send(payload); err != nil {
		return fmt.Errorf("prompt %q: %w", p.Prefix, err)
	}

	s.log.Info("[session] operator answer sent",
		zap.String("prompt", p.Prefix),
		zap.ByteString("payload", payload),
	)
	return nil
}
