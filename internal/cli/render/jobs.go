package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// JobsRenderer renders the configured jobs for the active network
type JobsRenderer struct {
	out   io.Writer
	color bool
}

// NewJobsRenderer creates a new jobs renderer
func NewJobsRenderer(out io.Writer, color bool) *JobsRenderer {
	return &JobsRenderer{
		out:   out,
		color: color,
	}
}

func (r *JobsRenderer) Render(result *usecase.ListJobsResult) error {
	if len(result.Jobs) == 0 {
		fmt.Fprintln(r.out, "No jobs configured")
		return nil
	}

	network := result.Network
	if network == "" {
		network = "no network"
	}
	color.New(color.FgCyan, color.Bold).Fprintf(r.out, "Jobs (%s):\n\n", network)

	rows := make(TableData, 0, len(result.Jobs))
	var broken []usecase.JobSummary
	for _, job := range result.Jobs {
		if job.Request == nil {
			rows = append(rows, []string{job.Name, "-", "-", "-", job.Description})
			broken = append(broken, job)
			continue
		}
		if job.Error != nil {
			broken = append(broken, job)
		}
		rows = append(rows, []string{
			job.Name,
			job.Request.ContractName,
			titleCase.String(string(job.Request.Mode)),
			formatTarget(job.Request),
			job.Description,
		})
	}

	fmt.Fprintln(r.out, renderTable([]string{"JOB", "CONTRACT", "MODE", "TARGET", "DESCRIPTION"}, rows))

	if len(broken) > 0 {
		fmt.Fprintln(r.out)
		for _, job := range broken {
			fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%s: %v", job.Name, job.Error)))
		}
	}
	return nil
}

// formatTarget shows the proxy for upgrades and the arguments otherwise
func formatTarget(req *models.DeploymentRequest) string {
	if req.Mode == models.ModeProxyUpgrade && req.ProxyAddress != nil {
		return "proxy " + req.ProxyAddress.Hex()
	}
	if len(req.ConstructorArgs) == 0 {
		return "()"
	}
	args := make([]string, len(req.ConstructorArgs))
	for i, arg := range req.ConstructorArgs {
		args[i] = shortArg(fmt.Sprint(arg))
	}
	return "(" + strings.Join(args, ", ") + ")"
}

// shortArg abbreviates addresses to keep the table narrow
func shortArg(s string) string {
	if strings.HasPrefix(s, "0x") && len(s) == 42 {
		return s[:6] + "…" + s[38:]
	}
	return s
}
