package interactive

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
	"github.com/sahilm/fuzzy"
)

// SelectorAdapter handles interactive selection
type SelectorAdapter struct {
	config *config.RuntimeConfig
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{config: cfg}
}

// SelectJob lets the operator pick one of the runnable jobs
func (s *SelectorAdapter) SelectJob(ctx context.Context, jobs []usecase.JobSummary) (string, error) {
	if s.config.NonInteractive {
		return "", fmt.Errorf("interactive selection not available in non-interactive mode")
	}

	runnable := make([]usecase.JobSummary, 0, len(jobs))
	for _, job := range jobs {
		if job.Error == nil {
			runnable = append(runnable, job)
		}
	}
	if len(runnable) == 0 {
		return "", fmt.Errorf("no runnable jobs configured")
	}
	if len(runnable) == 1 {
		return runnable[0].Name, nil
	}

	options := formatJobOptions(runnable)
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             "Select a job to run",
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(options),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return runnable[index].Name, nil
}

// formatJobOptions renders "deploy-marketplace  OVRMarketplace [proxy-deploy]"
func formatJobOptions(jobs []usecase.JobSummary) []string {
	width := 0
	for _, job := range jobs {
		width = max(width, len(job.Name))
	}

	options := make([]string, len(jobs))
	for i, job := range jobs {
		name := color.New(color.FgWhite, color.Bold).Sprint(job.Name)
		pad := strings.Repeat(" ", width-len(job.Name))
		contract := color.New(color.FgBlue).Sprint(job.Request.ContractName)
		mode := color.New(color.FgYellow).Sprintf("[%s]", job.Request.Mode)
		options[i] = fmt.Sprintf("%s%s  %s %s", name, pad, contract, mode)
	}
	return options
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		pattern := fuzzy.Find(input, []string{item})
		return len(pattern) > 0
	}
}

var _ usecase.JobSelector = (*SelectorAdapter)(nil)
