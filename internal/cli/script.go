package cli

import (
	"context"
	"io"

	"github.com/ovr-platform/ovr-deploy/internal/app"
	"github.com/ovr-platform/ovr-deploy/internal/config"
)

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	ReportError(stderr, err)
	return ExitCode(err)
}

// ExecuteJob runs one configured job with no command line, the way the
// per-job entry points under cli/scripts do. The network comes from
// OVR_NETWORK or the configured default; OVR_YES skips the prompt.
func ExecuteJob(ctx context.Context, job string, stdout, stderr io.Writer) int {
	err := executeJob(ctx, job, stdout)
	ReportError(stderr, err)
	return ExitCode(err)
}

func executeJob(ctx context.Context, job string, stdout io.Writer) error {
	projectRoot, err := config.FindProjectRoot()
	if err != nil {
		return err
	}

	v := config.SetupViper(projectRoot, nil)
	a, err := app.InitApp(v, newProgressSink(v.GetBool("non_interactive")))
	if err != nil {
		return err
	}

	if a.Config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.Timeout)
		defer cancel()
	}

	return runJob(ctx, a, job, stdout)
}
