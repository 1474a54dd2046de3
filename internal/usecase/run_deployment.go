package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ovr-platform/ovr-deploy/internal/domain"
	"github.com/ovr-platform/ovr-deploy/internal/domain/config"
	"github.com/ovr-platform/ovr-deploy/internal/domain/models"
)

// RunDeploymentParams selects what to run. JobName takes precedence over Request.
type RunDeploymentParams struct {
	JobName  string
	Request  *models.DeploymentRequest
	Reporter DeploymentReporter
}

// RunDeploymentResult is the outcome of one run, successful or not
type RunDeploymentResult struct {
	Request *models.DeploymentRequest
	State   models.RunState
	History []models.RunState
	Result  *models.DeploymentResult
	Err     error
}

func newRunDeploymentResult() *RunDeploymentResult {
	return &RunDeploymentResult{
		State:   models.StateIdle,
		History: []models.RunState{models.StateIdle},
	}
}

func (r *RunDeploymentResult) transition(to models.RunState) {
	if !r.State.CanTransition(to) {
		return
	}
	r.State = to
	r.History = append(r.History, to)
}

func (r *RunDeploymentResult) fail(kind, err error) error {
	de := domain.NewDeploymentError(kind, err)
	r.transition(models.StateFailed)
	r.Err = de
	return de
}

// RunDeployment resolves, submits, confirms and reports a single deployment
type RunDeployment struct {
	config    *config.RuntimeConfig
	artifacts ArtifactRegistry
	encoder   ArgumentEncoder
	chain     ChainClient
	proxies   ProxyToolkit
	confirmer BroadcastConfirmer
	progress  ProgressSink
	log       *slog.Logger
}

// NewRunDeployment creates a new RunDeployment use case
func NewRunDeployment(
	cfg *config.RuntimeConfig,
	artifacts ArtifactRegistry,
	encoder ArgumentEncoder,
	chain ChainClient,
	proxies ProxyToolkit,
	confirmer BroadcastConfirmer,
	progress ProgressSink,
	log *slog.Logger,
) *RunDeployment {
	return &RunDeployment{
		config:    cfg,
		artifacts: artifacts,
		encoder:   encoder,
		chain:     chain,
		proxies:   proxies,
		confirmer: confirmer,
		progress:  progress,
		log:       log.With("component", "runner"),
	}
}

// Run executes the whole lifecycle. Every failure is terminal; the returned
// error is a *domain.DeploymentError and is also stored on the result.
func (uc *RunDeployment) Run(ctx context.Context, params RunDeploymentParams) (*RunDeploymentResult, error) {
	run := newRunDeploymentResult()
	defer uc.stopProgress(ctx)

	req, err := uc.buildRequest(params)
	if err != nil {
		return run, run.fail(kindOr(err, domain.ErrInvalidRequest), err)
	}
	run.Request = req

	if err := req.Validate(); err != nil {
		return run, run.fail(domain.ErrInvalidRequest, err)
	}

	artifact, err := uc.ResolveArtifact(ctx, req.ContractName)
	if err != nil {
		return run, run.fail(kindOr(err, domain.ErrArtifactNotFound), err)
	}
	run.transition(models.StateResolved)

	args, err := uc.prepareArguments(artifact, req)
	if err != nil {
		return run, run.fail(domain.ErrInvalidRequest, err)
	}

	if err := uc.connect(ctx); err != nil {
		return run, run.fail(kindOr(err, domain.ErrSubmission), err)
	}
	defer uc.chain.Close()

	if err := uc.confirmBroadcast(ctx, req); err != nil {
		return run, run.fail(domain.ErrAborted, err)
	}

	if params.Reporter != nil {
		uc.stopProgress(ctx)
		params.Reporter.ReportStart(req)
	}

	pending, err := uc.submit(ctx, artifact, req, args)
	if err != nil {
		return run, run.fail(kindOr(err, domain.ErrSubmission), err)
	}
	run.transition(models.StateSubmitted)

	result, err := uc.AwaitConfirmation(ctx, pending)
	if err != nil {
		return run, run.fail(kindOr(err, domain.ErrConfirmationTimeout), err)
	}
	run.transition(models.StateConfirmed)
	run.Result = result

	uc.stopProgress(ctx)
	if params.Reporter != nil {
		if err := uc.Report(params.Reporter, result); err != nil {
			return run, fmt.Errorf("failed to report result: %w", err)
		}
	}

	return run, nil
}

// ResolveArtifact looks up a deployable artifact. It never touches the network.
func (uc *RunDeployment) ResolveArtifact(ctx context.Context, name string) (*models.Artifact, error) {
	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageResolving,
		Message: fmt.Sprintf("Resolving %s", name),
		Spinner: true,
	})

	artifact, err := uc.artifacts.Resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	if !artifact.IsDeployable() {
		return nil, fmt.Errorf("%w: %s has no creation bytecode (interface or abstract contract?)",
			domain.ErrInvalidRequest, artifact.FullyQualifiedName())
	}
	if artifact.NeedsLinking() {
		return nil, fmt.Errorf("%w: %s requires library linking, which is not supported",
			domain.ErrInvalidRequest, artifact.FullyQualifiedName())
	}

	uc.log.Debug("resolved artifact", "contract", artifact.FullyQualifiedName(), "path", artifact.Path)
	return artifact, nil
}

// Submit coerces the request arguments and broadcasts the transactions for it
func (uc *RunDeployment) Submit(ctx context.Context, artifact *models.Artifact, req *models.DeploymentRequest) (*models.PendingDeployment, error) {
	if err := req.Validate(); err != nil {
		return nil, domain.NewDeploymentError(domain.ErrInvalidRequest, err)
	}
	args, err := uc.prepareArguments(artifact, req)
	if err != nil {
		return nil, domain.NewDeploymentError(domain.ErrInvalidRequest, err)
	}
	if err := uc.connect(ctx); err != nil {
		return nil, err
	}
	return uc.submit(ctx, artifact, req, args)
}

func (uc *RunDeployment) submit(ctx context.Context, artifact *models.Artifact, req *models.DeploymentRequest, args []any) (*models.PendingDeployment, error) {
	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageSubmitting,
		Message: fmt.Sprintf("Submitting %s (%s)", artifact.Name, req.Mode),
		Spinner: true,
	})

	var (
		pending *models.PendingDeployment
		err     error
	)

	switch req.Mode {
	case models.ModeDeploy:
		var tx *models.PendingTransaction
		tx, err = uc.chain.Deploy(ctx, artifact, args...)
		if err == nil {
			pending = &models.PendingDeployment{
				Transactions: []*models.PendingTransaction{tx},
				Address:      tx.ContractAddress,
			}
		}
	case models.ModeProxyDeploy:
		pending, err = uc.proxies.DeployProxy(ctx, artifact, req, args)
	case models.ModeProxyUpgrade:
		pending, err = uc.proxies.UpgradeProxy(ctx, artifact, req)
	default:
		err = fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidRequest, req.Mode)
	}
	if err != nil {
		return nil, err
	}

	pending.Request = req
	pending.Artifact = artifact
	for _, tx := range pending.Transactions {
		uc.log.Debug("submitted transaction", "purpose", tx.Purpose, "hash", tx.Hash.Hex(), "nonce", tx.Nonce)
	}
	return pending, nil
}

// AwaitConfirmation waits for every outstanding transaction of the deployment.
// Proxy deployments and upgrades are recorded in the manifest once confirmed.
func (uc *RunDeployment) AwaitConfirmation(ctx context.Context, pending *models.PendingDeployment) (*models.DeploymentResult, error) {
	if pending == nil || len(pending.Transactions) == 0 {
		return nil, fmt.Errorf("%w: nothing was submitted", domain.ErrInvalidRequest)
	}

	for _, tx := range pending.Transactions {
		if tx.Receipt != nil {
			continue
		}
		uc.progress.OnProgress(ctx, ProgressEvent{
			Stage:   StageConfirming,
			Message: fmt.Sprintf("Waiting for %s transaction %s", tx.Purpose, tx.Hash.Hex()),
			Spinner: true,
		})
		if _, err := uc.chain.WaitConfirmed(ctx, tx); err != nil {
			return nil, err
		}
	}

	result := uc.buildResult(pending)

	if pending.Request != nil && pending.Request.Mode.IsProxy() {
		uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageRecording, Message: "Recording proxy", Spinner: true})
		if err := uc.proxies.Record(ctx, pending); err != nil {
			// the deployment itself succeeded; the manifest is bookkeeping
			uc.log.Warn("failed to record proxy in manifest", "proxy", pending.Address.Hex(), "error", err)
		}
	}

	return result, nil
}

// Report hands the confirmed result to the operator-facing reporter
func (uc *RunDeployment) Report(reporter DeploymentReporter, result *models.DeploymentResult) error {
	return reporter.Report(result)
}

func (uc *RunDeployment) buildResult(pending *models.PendingDeployment) *models.DeploymentResult {
	result := &models.DeploymentResult{
		Address:              pending.Address,
		Implementation:       pending.Implementation,
		ImplementationReused: pending.ImplementationReused,
		ChainID:              uc.chain.ChainID(),
	}
	if uc.config.Network != nil {
		result.Network = uc.config.Network.Name
	}
	if req := pending.Request; req != nil {
		result.Label = req.Label
		result.ContractName = req.ContractName
		result.Mode = req.Mode
	}
	for _, tx := range pending.Transactions {
		result.TxHashes = append(result.TxHashes, tx.Hash)
		if tx.Receipt != nil {
			result.GasUsed += tx.Receipt.GasUsed
		}
	}
	if last := pending.Last(); last != nil && last.Receipt != nil && last.Receipt.BlockNumber != nil {
		result.BlockNumber = last.Receipt.BlockNumber.Uint64()
	}
	return result
}

func (uc *RunDeployment) buildRequest(params RunDeploymentParams) (*models.DeploymentRequest, error) {
	if params.JobName == "" {
		if params.Request == nil {
			return nil, fmt.Errorf("no job or contract given")
		}
		req := *params.Request
		req.ConstructorArgs = append([]any(nil), params.Request.ConstructorArgs...)
		return &req, nil
	}

	job, ok := uc.config.Jobs[params.JobName]
	if !ok {
		names := make([]string, 0, len(uc.config.Jobs))
		for name := range uc.config.Jobs {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, domain.JobNotFoundErr{Name: params.JobName, Suggestions: SuggestNames(params.JobName, names)}
	}

	network := ""
	if uc.config.Network != nil {
		network = uc.config.Network.Name
	}
	return job.RequestFor(params.JobName, network)
}

// prepareArguments coerces the request literals against the constructor or
// initializer inputs and flags zero-address placeholders.
func (uc *RunDeployment) prepareArguments(artifact *models.Artifact, req *models.DeploymentRequest) ([]any, error) {
	var inputs abi.Arguments

	switch req.Mode {
	case models.ModeDeploy:
		inputs = artifact.ABI.Constructor.Inputs
	case models.ModeProxyDeploy:
		method, ok := artifact.ABI.Methods[req.Initializer]
		if !ok {
			return nil, fmt.Errorf("%s has no initializer %q", artifact.Name, req.Initializer)
		}
		inputs = method.Inputs
	case models.ModeProxyUpgrade:
		return nil, nil
	}

	args, err := uc.encoder.Coerce(inputs, req.ConstructorArgs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", artifact.Name, err)
	}

	for i, arg := range args {
		addr, ok := arg.(common.Address)
		if !ok || addr != (common.Address{}) {
			continue
		}
		name := inputs[i].Name
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if uc.config.StrictAddresses {
			return nil, fmt.Errorf("argument %s of %s is the zero address", name, artifact.Name)
		}
		uc.log.Warn("zero address argument treated as not-yet-deployed placeholder",
			"contract", artifact.Name, "argument", name)
	}

	return args, nil
}

func (uc *RunDeployment) connect(ctx context.Context) error {
	network := "network"
	if uc.config.Network != nil {
		network = uc.config.Network.Name
	}
	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageConnecting,
		Message: fmt.Sprintf("Connecting to %s", network),
		Spinner: true,
	})
	return uc.chain.Connect(ctx)
}

func (uc *RunDeployment) confirmBroadcast(ctx context.Context, req *models.DeploymentRequest) error {
	if !uc.config.RequiresConfirmation() {
		return nil
	}

	uc.stopProgress(ctx)
	ok, err := uc.confirmer.ConfirmBroadcast(ctx, BroadcastSummary{
		Network:  uc.config.Network.Name,
		ChainID:  uc.chain.ChainID(),
		Sender:   uc.chain.Sender(),
		Contract: req.ContractName,
		Mode:     req.Mode,
		Proxy:    req.ProxyAddress,
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("broadcast to %s declined", uc.config.Network.Name)
	}
	return nil
}

func (uc *RunDeployment) stopProgress(ctx context.Context) {
	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageCompleted})
}

// kindOr classifies err, falling back when it carries no known kind
func kindOr(err, fallback error) error {
	if kind := domain.ErrorKind(err); kind != nil {
		return kind
	}
	return fallback
}
