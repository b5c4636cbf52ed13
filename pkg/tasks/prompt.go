package tasks

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// Prompter asks the user yes/no questions. Tasks consult it only for
// ambiguous decisions; --yes short-circuits it.
type Prompter interface {
	Confirm(question string, defaultYes bool) bool
}

// NewPrompter returns the production prompter: interactive when stdin is
// a terminal, otherwise every question resolves to its default.
func NewPrompter(autoYes bool) Prompter {
	if autoYes {
		return autoYesPrompter{}
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return defaultsPrompter{}
	}
	return interactivePrompter{}
}

type autoYesPrompter struct{}

func (autoYesPrompter) Confirm(string, bool) bool { return true }

type defaultsPrompter struct{}

func (defaultsPrompter) Confirm(_ string, defaultYes bool) bool { return defaultYes }

type interactivePrompter struct{}

func (interactivePrompter) Confirm(question string, defaultYes bool) bool {
	answer, err := pterm.DefaultInteractiveConfirm.
		WithDefaultValue(defaultYes).
		Show(question)
	if err != nil {
		return defaultYes
	}
	return answer
}

// FixedPrompter always answers the same way. For tests.
type FixedPrompter struct {
	Answer bool

	// Questions records what was asked.
	Questions []string
}

func (p *FixedPrompter) Confirm(question string, _ bool) bool {
	p.Questions = append(p.Questions, question)
	return p.Answer
}
