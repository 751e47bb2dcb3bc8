package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// TerminalPrompter asks questions on the terminal.
//
// Pattern: Strategy -- implements remote.Prompter.
type TerminalPrompter struct {
	// Accessible renders plain line-based prompts
	// instead of the interactive widgets.
	Accessible bool
	// Input and Output default to the terminal.
	Input  io.Reader
	Output io.Writer
}

func (p *TerminalPrompter) run(ctx context.Context, form *huh.Form) error {
	form = form.WithAccessible(p.Accessible)

	if p.Input != nil {
		form = form.WithInput(p.Input)
	}

	if p.Output != nil {
		form = form.WithOutput(p.Output)
	}

	return form.RunWithContext(ctx)
}

// ShowInformationMessage prints text and, when buttons
// are given, lets the user pick one. A dismissed prompt
// yields "".
func (p *TerminalPrompter) ShowInformationMessage(
	ctx context.Context,
	text string,
	buttons ...string,
) (string, error) {
	const errCtx = "showing message"

	if len(buttons) == 0 {
		out := p.Output
		if out == nil {
			out = os.Stderr
		}

		if _, err := fmt.Fprintln(out, text); err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}

		return "", nil
	}

	options := make([]huh.Option[string], 0, len(buttons))
	for _, b := range buttons {
		options = append(options, huh.NewOption(b, b))
	}

	var choice string

	err := p.run(ctx, huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(text).
				Options(options...).
				Value(&choice),
		),
	))
	if errors.Is(err, huh.ErrUserAborted) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return choice, nil
}

// PromptToken asks for an access token for providerID
// without echoing it. A dismissed prompt yields "".
func (p *TerminalPrompter) PromptToken(
	ctx context.Context,
	providerID string,
) (string, error) {
	const errCtx = "prompting for token"

	var token string

	err := p.run(ctx, huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Access token for " + providerID).
				EchoMode(huh.EchoModePassword).
				Value(&token),
		),
	))
	if errors.Is(err, huh.ErrUserAborted) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return strings.TrimSpace(token), nil
}
