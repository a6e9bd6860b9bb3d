package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/appforge/appforge/internal/interfaces"
	"github.com/appforge/appforge/pkg/logging"
)

// commandNotFoundExit is the conventional shell exit code for a missing binary
const commandNotFoundExit = 127

// Summary line formats for the supported engine actions. Parsing is
// best-effort: a non-matching line degrades to an all-zero summary so a
// rendering discrepancy never blocks a legitimate result.
var (
	planSummaryRe    = regexp.MustCompile(`Plan: (\d+) to add, (\d+) to change, (\d+) to destroy`)
	applySummaryRe   = regexp.MustCompile(`Apply complete! Resources: (\d+) added, (\d+) changed, (\d+) destroyed`)
	destroySummaryRe = regexp.MustCompile(`Destroy complete! Resources: (\d+) destroyed`)
)

// Factory builds engine adapters scoped to one environment workspace
type Factory struct {
	executor interfaces.ProcessExecutor
	runtime  string
	image    string
}

// NewFactory creates an engine adapter factory using the given container runtime and image
func NewFactory(executor interfaces.ProcessExecutor, runtime, image string) *Factory {
	return &Factory{
		executor: executor,
		runtime:  runtime,
		image:    image,
	}
}

// ForEnvironment returns an EngineRunner scoped to one environment of one project
func (f *Factory) ForEnvironment(workDir, environmentID string, backend interfaces.BackendSettings, modules []interfaces.PlannedModule) interfaces.EngineRunner {
	return &Adapter{
		executor:      f.executor,
		runtime:       f.runtime,
		image:         f.image,
		workDir:       workDir,
		environmentID: environmentID,
		backend:       backend,
		modules:       modules,
		logger:        logging.Engine,
	}
}

// Adapter executes plan, apply, destroy, and report against a containerized
// IaC tool for a single environment workspace
type Adapter struct {
	executor      interfaces.ProcessExecutor
	runtime       string
	image         string
	workDir       string
	environmentID string
	backend       interfaces.BackendSettings
	modules       []interfaces.PlannedModule
	initialized   bool
	logger        *logging.Logger
}

// Plan runs the engine's plan action and parses its change summary
func (a *Adapter) Plan(ctx context.Context) (*interfaces.EngineResult, error) {
	args := append([]string{"plan", "-input=false", "-no-color"}, a.targetArgs()...)
	return a.runMutating(ctx, "plan", args, planSummaryRe)
}

// Apply runs the engine's apply action, parses its change summary, and
// collects the provider outputs the run produced
func (a *Adapter) Apply(ctx context.Context) (*interfaces.EngineResult, error) {
	args := append([]string{"apply", "-input=false", "-no-color", "-auto-approve"}, a.targetArgs()...)
	result, err := a.runMutating(ctx, "apply", args, applySummaryRe)
	if err != nil {
		return nil, err
	}
	result.Outputs = a.collectOutputs(ctx)
	return result, nil
}

// Destroy runs the engine's destroy action and parses its change summary
func (a *Adapter) Destroy(ctx context.Context) (*interfaces.EngineResult, error) {
	return a.runMutating(ctx, "destroy",
		[]string{"destroy", "-input=false", "-no-color", "-auto-approve"}, destroySummaryRe)
}

// Report runs a read-only drift check. The engine's exit code, not its output
// text, is the source of truth: 0 means no drift, 2 means drift is present,
// anything else is a failure with the captured stderr as the error message.
func (a *Adapter) Report(ctx context.Context) (*interfaces.ReportResult, error) {
	if err := a.ensureInit(ctx); err != nil {
		return nil, err
	}

	result, err := a.execute(ctx, []string{"plan", "-input=false", "-no-color", "-detailed-exitcode"}, true)
	if err != nil {
		return nil, err
	}

	report := &interfaces.ReportResult{Logs: outputLines(result)}
	switch result.ExitCode {
	case 0:
		report.Status = interfaces.StatusHealthy
	case 2:
		report.Status = interfaces.StatusDrifted
	default:
		report.Status = interfaces.StatusFailed
		report.ErrorMessage = strings.TrimSpace(result.Stderr)
	}
	a.logger.Debug("report for environment %s: status=%s exit=%d", a.environmentID, report.Status, result.ExitCode)
	return report, nil
}

// runMutating is the single execution path shared by plan, apply, and destroy
func (a *Adapter) runMutating(ctx context.Context, action string, args []string, summaryRe *regexp.Regexp) (*interfaces.EngineResult, error) {
	if err := a.ensureInit(ctx); err != nil {
		return nil, err
	}

	result, err := a.execute(ctx, args, false)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, NewCommandFailedError(action, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	summary := parseSummary(summaryRe, result.Stdout)
	a.logger.Info("engine %s for environment %s: add=%d change=%d destroy=%d",
		action, a.environmentID, summary.Add, summary.Change, summary.Destroy)
	return &interfaces.EngineResult{
		Summary: summary,
		Logs:    outputLines(result),
	}, nil
}

// ensureInit initializes the workspace's backend once per adapter lifetime
func (a *Adapter) ensureInit(ctx context.Context) error {
	if a.initialized {
		return nil
	}

	args := []string{
		"init", "-input=false", "-no-color",
		"-backend-config=bucket=" + a.backend.Bucket,
		"-backend-config=region=" + a.backend.Region,
		"-backend-config=key=" + a.stateKey(),
	}
	if a.backend.Profile != "" {
		args = append(args, "-backend-config=profile="+a.backend.Profile)
	}

	result, err := a.execute(ctx, args, false)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return NewCommandFailedError("init", result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	a.initialized = true
	return nil
}

// targetArgs restricts plan and apply to the environment's planned modules so
// the engine never touches modules outside the declared capability set
func (a *Adapter) targetArgs() []string {
	args := make([]string, 0, len(a.modules))
	for _, m := range a.modules {
		args = append(args, "-target=module."+m.ModuleID)
	}
	return args
}

// collectOutputs reads the provider outputs after a successful apply.
// Collection is best-effort: a failure here never fails the apply itself.
func (a *Adapter) collectOutputs(ctx context.Context) map[string]interface{} {
	result, err := a.execute(ctx, []string{"output", "-json", "-no-color"}, true)
	if err != nil || result.ExitCode != 0 {
		a.logger.Warn("failed to collect outputs for environment %s", a.environmentID)
		return nil
	}

	var raw map[string]struct {
		Value interface{} `json:"value"`
	}
	if err := json.Unmarshal([]byte(result.Stdout), &raw); err != nil {
		a.logger.Warn("failed to parse outputs for environment %s: %v", a.environmentID, err)
		return nil
	}

	outputs := make(map[string]interface{}, len(raw))
	for key, entry := range raw {
		outputs[key] = entry.Value
	}
	return outputs
}

// stateKey scopes remote state to this environment so two environments or two
// users never silently share state
func (a *Adapter) stateKey() string {
	return path.Join(a.backend.StatePrefix, a.environmentID, "terraform.tfstate")
}

// execute runs one containerized engine invocation and classifies start failures
func (a *Adapter) execute(ctx context.Context, engineArgs []string, allowNonZeroExit bool) (*interfaces.ExecResult, error) {
	req := interfaces.ExecRequest{
		Command:          a.runtime,
		Args:             a.containerArgs(engineArgs),
		Dir:              a.workDir,
		AllowNonZeroExit: allowNonZeroExit,
	}

	result, err := a.executor.Execute(ctx, req)
	switch {
	case err != nil && errors.Is(err, exec.ErrNotFound):
		return nil, NewRunnerUnavailableError(a.runtime)
	case err != nil && result == nil:
		return nil, NewAdapterError(err)
	case result != nil && result.ExitCode == commandNotFoundExit:
		return nil, NewRunnerUnavailableError(a.runtime)
	case err != nil && !allowNonZeroExit && result != nil:
		// Process ran but exited non-zero; the caller inspects the exit code.
		return result, nil
	case err != nil:
		return nil, NewAdapterError(err)
	}
	return result, nil
}

// containerArgs wraps engine arguments in the container runtime invocation,
// mounting the workspace and disabling interactive prompts
func (a *Adapter) containerArgs(engineArgs []string) []string {
	args := []string{
		"run", "--rm",
		"-v", a.workDir + ":/workspace",
		"-w", "/workspace",
		"-e", "TF_IN_AUTOMATION=1",
	}
	if a.backend.Profile != "" {
		args = append(args, "-e", "AWS_PROFILE="+a.backend.Profile)
	}
	args = append(args, a.image)
	return append(args, engineArgs...)
}

// parseSummary extracts a change summary from engine output, degrading to an
// all-zero summary when the expected line is absent
func parseSummary(re *regexp.Regexp, stdout string) interfaces.ChangeSummary {
	match := re.FindStringSubmatch(stdout)
	if match == nil {
		return interfaces.ChangeSummary{}
	}

	counts := make([]int, 0, 3)
	for _, raw := range match[1:] {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return interfaces.ChangeSummary{}
		}
		counts = append(counts, n)
	}

	if len(counts) == 1 {
		// Destroy reports a single destroyed count.
		return interfaces.ChangeSummary{Destroy: counts[0]}
	}
	return interfaces.ChangeSummary{Add: counts[0], Change: counts[1], Destroy: counts[2]}
}

// outputLines splits captured output into log lines for run history
func outputLines(result *interfaces.ExecResult) []string {
	var lines []string
	for _, chunk := range []string{result.Stdout, result.Stderr} {
		for _, line := range strings.Split(chunk, "\n") {
			if trimmed := strings.TrimRight(line, "\r"); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}
	}
	return lines
}

// Ensure Adapter implements interfaces.EngineRunner
var _ interfaces.EngineRunner = (*Adapter)(nil)

// Ensure Factory implements interfaces.EngineFactory
var _ interfaces.EngineFactory = (*Factory)(nil)

// String describes the adapter target for diagnostics
func (a *Adapter) String() string {
	return fmt.Sprintf("engine[%s %s env=%s]", a.runtime, a.image, a.environmentID)
}
