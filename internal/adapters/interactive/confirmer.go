package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// ConfirmerAdapter asks for a yes/no before broadcasting to a live network
type ConfirmerAdapter struct {
	config *config.RuntimeConfig
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewConfirmerAdapter creates a confirmer prompting on the terminal
func NewConfirmerAdapter(cfg *config.RuntimeConfig) *ConfirmerAdapter {
	return &ConfirmerAdapter{config: cfg, stdin: os.Stdin, stdout: os.Stderr}
}

// ConfirmBroadcast prints what is about to be sent and waits for the operator.
// Answering no, or interrupting the prompt, declines without an error.
func (c *ConfirmerAdapter) ConfirmBroadcast(ctx context.Context, summary usecase.BroadcastSummary) (bool, error) {
	if c.config.AssumeYes {
		return true, nil
	}
	if c.config.NonInteractive {
		return false, fmt.Errorf("broadcast to %s needs confirmation; pass --yes", summary.Network)
	}

	fmt.Fprintln(c.stdout, Summary(summary))

	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Broadcast to %s", summary.Network),
		IsConfirm: true,
		Stdin:     c.stdin,
		Stdout:    c.stdout,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return true, nil
}

// Summary renders the broadcast details shown before the prompt
func Summary(s usecase.BroadcastSummary) string {
	label := color.New(color.FgWhite, color.Faint)
	value := color.New(color.FgCyan, color.Bold)

	lines := []string{
		label.Sprint("Network:  ") + value.Sprintf("%s (chain %s)", s.Network, s.ChainID),
		label.Sprint("Sender:   ") + value.Sprint(s.Sender.Hex()),
		label.Sprint("Contract: ") + value.Sprint(s.Contract),
		label.Sprint("Mode:     ") + value.Sprint(s.Mode),
	}
	if s.Proxy != nil {
		lines = append(lines, label.Sprint("Proxy:    ")+value.Sprint(s.Proxy.Hex()))
	}

	return strings.Join(lines, "\n")
}

var _ usecase.BroadcastConfirmer = (*ConfirmerAdapter)(nil)
