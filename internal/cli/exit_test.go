package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"artifact not found", domain.ArtifactNotFoundErr{Name: "OVRMarketplace"}, ExitFailure},
		{"submission", domain.NewDeploymentError(domain.ErrSubmission, errors.New("insufficient funds")), ExitFailure},
		{"reverted", domain.NewDeploymentError(domain.ErrTransactionReverted, nil), ExitFailure},
		{"timeout", fmt.Errorf("wait: %w", domain.ErrConfirmationTimeout), ExitFailure},
		{"upgrade mismatch", domain.UpgradeMismatchErr{Reasons: []string{"no code"}}, ExitFailure},
		{"aborted", domain.NewDeploymentError(domain.ErrAborted, errors.New("declined")), ExitFailure},
		{"unclassified", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestReportError(t *testing.T) {
	t.Run("with hint", func(t *testing.T) {
		var buf bytes.Buffer
		err := domain.NewDeploymentError(domain.ErrArtifactNotFound, domain.ArtifactNotFoundErr{Name: "OVRMarketplce", Suggestions: []string{"OVRMarketplace"}})
		ReportError(&buf, err)

		assert.Contains(t, buf.String(), `Error: artifact "OVRMarketplce" not found`)
		assert.Contains(t, buf.String(), "did you mean OVRMarketplace?")
		assert.Contains(t, buf.String(), "hint: compile the contracts first")
	})

	t.Run("without hint", func(t *testing.T) {
		var buf bytes.Buffer
		ReportError(&buf, errors.New("boom"))
		assert.Equal(t, "Error: boom\n", buf.String())
	})

	t.Run("nil prints nothing", func(t *testing.T) {
		var buf bytes.Buffer
		ReportError(&buf, nil)
		assert.Empty(t, buf.String())
	})
}

func TestHint(t *testing.T) {
	assert.Contains(t, Hint(domain.NewDeploymentError(domain.ErrSubmission, errors.New("nonce too low"))), "PRIVATE_KEY")
	assert.Contains(t, Hint(domain.UpgradeMismatchErr{}), "storage layout")
	assert.Empty(t, Hint(domain.NewDeploymentError(domain.ErrAborted, nil)))
	assert.Empty(t, Hint(errors.New("plain")))
}

func TestBuildDeployRequest(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		req, err := buildDeployRequest([]string{"OVRLandMapping", "0x93C46aA4DdfD0413d95D0eF3c478982997cE9861"}, false, "initialize", "")
		require.NoError(t, err)
		assert.Equal(t, models.ModeDeploy, req.Mode)
		assert.Equal(t, []any{"0x93C46aA4DdfD0413d95D0eF3c478982997cE9861"}, req.ConstructorArgs)
		assert.Nil(t, req.ProxyAddress)
	})

	t.Run("proxy", func(t *testing.T) {
		req, err := buildDeployRequest([]string{"OVRMarketplace", "500"}, true, "init", "")
		require.NoError(t, err)
		assert.Equal(t, models.ModeProxyDeploy, req.Mode)
		assert.Equal(t, "init", req.Initializer)
		assert.Equal(t, models.ProxyKindUUPS, req.Kind)
	})

	t.Run("upgrade", func(t *testing.T) {
		req, err := buildDeployRequest([]string{"OVRMarketplace"}, false, "initialize", "0x7616bFb03e250470386ab4888c447936d065816B")
		require.NoError(t, err)
		assert.Equal(t, models.ModeProxyUpgrade, req.Mode)
		require.NotNil(t, req.ProxyAddress)
		assert.Equal(t, common.HexToAddress("0x7616bFb03e250470386ab4888c447936d065816B"), *req.ProxyAddress)
		require.NoError(t, req.Validate())
	})

	t.Run("malformed proxy address", func(t *testing.T) {
		_, err := buildDeployRequest([]string{"OVRMarketplace"}, false, "initialize", "0x7616")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.ErrorIs(t, err, domain.ErrInvalidAddress)
		assert.Equal(t, ExitFailure, ExitCode(err))
	})
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	code := Execute(context.Background(), []string{"version"}, &out, &out)
	assert.Equal(t, ExitOK, code)
	assert.True(t, strings.HasPrefix(out.String(), "ovrdeploy version "), out.String())
	assert.Contains(t, out.String(), "go: go")
}

func TestFormatVersion(t *testing.T) {
	t.Run("release build", func(t *testing.T) {
		assert.Equal(t, "ovrdeploy version v0.3.0\n", formatVersion("v0.3.0", nil))
	})

	t.Run("go install build", func(t *testing.T) {
		info := &debug.BuildInfo{
			GoVersion: "go1.24.2",
			Main:      debug.Module{Path: "github.com/ovr-platform/ovr-deploy", Version: "v0.4.1"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123456789abcdef01234567"},
				{Key: "vcs.time", Value: "2024-05-01T00:00:00Z"},
				{Key: "vcs.modified", Value: "true"},
			},
		}
		want := "ovrdeploy version v0.4.1\n" +
			"commit: 0123456789ab (modified)\n" +
			"built: 2024-05-01T00:00:00Z\n" +
			"go: go1.24.2\n"
		assert.Equal(t, want, formatVersion("dev", info))
	})

	t.Run("ldflags version wins over module version", func(t *testing.T) {
		info := &debug.BuildInfo{GoVersion: "go1.24.2", Main: debug.Module{Version: "v0.4.1"}}
		assert.Equal(t, "ovrdeploy version v0.3.0\ngo: go1.24.2\n", formatVersion("v0.3.0", info))
	})
}
