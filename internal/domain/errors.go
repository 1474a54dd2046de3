package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidAddress is returned when an Ethereum address is invalid
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidRequest is returned when a deployment request fails validation
	ErrInvalidRequest = errors.New("invalid deployment request")

	// ErrArtifactNotFound is returned when no compiled artifact matches a contract name
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrSubmission is returned when a transaction could not be signed or broadcast
	ErrSubmission = errors.New("submission failed")

	// ErrTransactionReverted is returned when a mined transaction has a failed status
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrConfirmationTimeout is returned when waiting for a receipt gave up
	ErrConfirmationTimeout = errors.New("confirmation timeout")

	// ErrUpgradeTargetMismatch is returned when a proxy cannot be upgraded to the new implementation
	ErrUpgradeTargetMismatch = errors.New("upgrade target mismatch")

	// ErrAborted is returned when the operator declines to broadcast
	ErrAborted = errors.New("aborted by user")
)

// DeploymentError carries the failure kind of a run together with its cause.
// Both the kind sentinel and the cause are reachable through errors.Is/As.
type DeploymentError struct {
	Kind error
	Err  error
}

func NewDeploymentError(kind, err error) *DeploymentError {
	return &DeploymentError{Kind: kind, Err: err}
}

func (e *DeploymentError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	if errors.Is(e.Err, e.Kind) {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *DeploymentError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var errorKinds = []error{
	ErrArtifactNotFound,
	ErrUpgradeTargetMismatch,
	ErrTransactionReverted,
	ErrConfirmationTimeout,
	ErrSubmission,
	ErrInvalidRequest,
	ErrAborted,
	ErrNotFound,
}

// ErrorKind returns the sentinel classifying err, or nil when err is
// not one of the known deployment failures.
func ErrorKind(err error) error {
	if err == nil {
		return nil
	}
	var de *DeploymentError
	if errors.As(err, &de) {
		return de.Kind
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

type ArtifactNotFoundErr struct {
	Name        string
	Suggestions []string
}

func (e ArtifactNotFoundErr) Error() string {
	msg := fmt.Sprintf("artifact %q not found (is the build output up to date?)", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf("; did you mean %s?", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e ArtifactNotFoundErr) Is(target error) bool {
	return target == ErrArtifactNotFound
}

type AmbiguousArtifactErr struct {
	Name    string
	Matches []string
}

func (e AmbiguousArtifactErr) Error() string {
	var lines []string
	for _, m := range e.Matches {
		lines = append(lines, "  - "+m)
	}
	return fmt.Sprintf("multiple artifacts named %q - use path:Contract to disambiguate:\n%s",
		e.Name, strings.Join(lines, "\n"))
}

func (e AmbiguousArtifactErr) Is(target error) bool {
	return target == ErrInvalidRequest
}

type UpgradeMismatchErr struct {
	Proxy   common.Address
	Reasons []string
}

func (e UpgradeMismatchErr) Error() string {
	return fmt.Sprintf("cannot upgrade proxy %s:\n  - %s", e.Proxy.Hex(), strings.Join(e.Reasons, "\n  - "))
}

func (e UpgradeMismatchErr) Is(target error) bool {
	return target == ErrUpgradeTargetMismatch
}

type JobNotFoundErr struct {
	Name        string
	Suggestions []string
}

func (e JobNotFoundErr) Error() string {
	msg := fmt.Sprintf("job %q not found", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf("; did you mean %s?", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

func (e JobNotFoundErr) Is(target error) bool {
	return target == ErrNotFound
}
