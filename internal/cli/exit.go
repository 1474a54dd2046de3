package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/ovr-platform/ovr-deploy/internal/cli/render"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

var hints = map[error]string{
	domain.ErrArtifactNotFound:      "compile the contracts first (npx hardhat compile or forge build)",
	domain.ErrSubmission:            "check the RPC URL, PRIVATE_KEY and the signer's balance",
	domain.ErrTransactionReverted:   "the transaction was mined but reverted; check the constructor or initializer arguments",
	domain.ErrConfirmationTimeout:   "the transaction may still be mined; check the explorer before running again",
	domain.ErrUpgradeTargetMismatch: "check the proxy address and the storage layout of the new implementation",
}

// ExitCode maps the outcome of a command to the process exit status.
// Every failure kind exits 1; the kind only changes the printed hint.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitFailure
}

// ReportError prints err as "Error: ..." followed by a hint for its kind
func ReportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, render.FormatError(err))
	if hint := Hint(err); hint != "" {
		fmt.Fprintln(w, color.New(color.Faint).Sprintf("hint: %s", hint))
	}
}

// Hint returns the operator hint for the kind of err, if any
func Hint(err error) string {
	return hints[domain.ErrorKind(err)]
}
