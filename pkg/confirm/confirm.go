// Package confirm orchestrates confirmed tool execution: announce the action,
// validate arguments, ask the user when the call is sensitive, run the call
// with progress filler speech, then summarize and record the outcome.
package confirm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/akeildev/basicsHalo/internal/config"
	"github.com/akeildev/basicsHalo/internal/logger"
	"github.com/akeildev/basicsHalo/internal/metrics"
	"github.com/akeildev/basicsHalo/pkg/describe"
	"github.com/akeildev/basicsHalo/pkg/policy"
	"github.com/akeildev/basicsHalo/pkg/router"
	"github.com/akeildev/basicsHalo/pkg/transport"
)

// Speech is the voice collaborator: it speaks to the user and listens for a
// yes/no answer.
type Speech interface {
	Say(ctx context.Context, text string) error
	ListenYesNo(ctx context.Context, timeout time.Duration) (bool, error)
}

// Describer turns tool invocations into human sentences and results into
// spoken summaries.
type Describer interface {
	Describe(toolName string, args map[string]interface{}) string
	Summarize(action string, result interface{}) string
}

// ToolCaller is the router surface the coordinator depends on.
type ToolCaller interface {
	CallTool(ctx context.Context, tool router.ToolSpec, arguments map[string]interface{}, timeout time.Duration) (map[string]interface{}, error)
}

// ExecutionResult is the structured outcome of one Execute call. Every
// terminal outcome produces exactly one spoken utterance and one result.
type ExecutionResult struct {
	Success  bool                   `json:"success"`
	Tool     string                 `json:"tool"`
	Action   string                 `json:"action"`
	Result   map[string]interface{} `json:"result,omitempty"`
	Summary  string                 `json:"summary,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Canceled bool                   `json:"canceled,omitempty"`
	ArgsHash string                 `json:"args_hash,omitempty"`
}

// Options adjust a single Execute call.
type Options struct {
	// Timeout overrides the policy default tool timeout when positive.
	Timeout time.Duration
	// SkipConfirmation bypasses the confirmation step.
	SkipConfirmation bool
	// SkipAnnouncement suppresses the "I'll ..." announcement for flows
	// where the confirmation prompt already restates the action.
	SkipAnnouncement bool
}

// Coordinator runs the announce, validate, confirm, execute, summarize flow.
type Coordinator struct {
	router    ToolCaller
	speech    Speech
	describer Describer
	checker   *policy.Checker
	policy    config.PolicyConfig
	metrics   *metrics.Metrics
	history   *History

	// settleDelay gives the user a moment to process the confirmation
	// question before listening starts.
	settleDelay time.Duration
}

// New creates a coordinator. The default describer is the rule-based service
// from pkg/describe.
func New(toolRouter ToolCaller, speech Speech, policyCfg config.PolicyConfig) *Coordinator {
	return &Coordinator{
		router:      toolRouter,
		speech:      speech,
		describer:   describe.New(),
		checker:     policy.NewChecker(policyCfg),
		policy:      policyCfg,
		history:     NewHistory(defaultHistorySize),
		settleDelay: 500 * time.Millisecond,
	}
}

// SetDescriber replaces the action-description collaborator.
func (c *Coordinator) SetDescriber(d Describer) {
	c.describer = d
}

// SetMetrics attaches a metrics registry. Optional.
func (c *Coordinator) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// SetSettleDelay overrides the pause between the confirmation prompt and
// listening.
func (c *Coordinator) SetSettleDelay(d time.Duration) {
	c.settleDelay = d
}

// Execute runs one tool invocation end to end.
func (c *Coordinator) Execute(ctx context.Context, tool router.ToolSpec, arguments map[string]interface{}, opts Options) ExecutionResult {
	action := c.describer.Describe(tool.Name, arguments)

	// Validation short-circuits before any backend activity.
	if err := c.checker.ValidateArguments(tool, arguments); err != nil {
		reason := err.Error()
		log.Warn().
			Str("tool", tool.Name).
			Str("reason", reason).
			Interface("args", logger.SanitizeArgs(arguments)).
			Msg("Validation failed")
		c.say(ctx, reason)
		return ExecutionResult{
			Success: false,
			Error:   reason,
			Tool:    tool.Name,
			Action:  action,
		}
	}

	if !opts.SkipAnnouncement {
		c.say(ctx, fmt.Sprintf("I'll %s.", action))
	}

	if !opts.SkipConfirmation && c.checker.NeedsConfirmation(tool) {
		if result, proceed := c.confirm(ctx, tool, action); !proceed {
			return result
		}
	}

	return c.executeWithFiller(ctx, tool, arguments, action, opts.Timeout)
}

// confirm asks the user and waits for a yes/no answer. Returns the terminal
// result and false when the flow must stop.
func (c *Coordinator) confirm(ctx context.Context, tool router.ToolSpec, action string) (ExecutionResult, bool) {
	prompt := fmt.Sprintf("Do you want me to %s?", action)
	log.Info().Str("tool", tool.Name).Str("prompt", prompt).Msg("Asking for confirmation")
	c.say(ctx, prompt)

	// Give the user a moment to process the question.
	if c.settleDelay > 0 {
		select {
		case <-time.After(c.settleDelay):
		case <-ctx.Done():
		}
	}

	timeout := c.confirmTimeout()
	confirmed, err := c.speech.ListenYesNo(ctx, timeout)
	if err != nil {
		log.Info().Str("tool", tool.Name).Dur("timeout", timeout).Msg("Confirmation timed out")
		c.countConfirmation("timeout")
		c.say(ctx, "I didn't hear a response, so I'll cancel that.")
		return ExecutionResult{
			Success: false,
			Error:   "Confirmation timeout",
			Tool:    tool.Name,
			Action:  action,
		}, false
	}

	if !confirmed {
		log.Info().Str("tool", tool.Name).Msg("User declined")
		c.countConfirmation("declined")
		c.say(ctx, "Okay, I won't do that.")
		return ExecutionResult{
			Success:  false,
			Error:    "User declined",
			Tool:     tool.Name,
			Action:   action,
			Canceled: true,
		}, false
	}

	c.countConfirmation("approved")
	return ExecutionResult{}, true
}

// executeWithFiller runs the tool call with the progress filler speaking
// concurrently. The filler is always stopped, with a bounded grace, before
// the result is reported.
func (c *Coordinator) executeWithFiller(ctx context.Context, tool router.ToolSpec, arguments map[string]interface{}, action string, timeout time.Duration) ExecutionResult {
	if timeout <= 0 {
		timeout = c.toolTimeout()
	}

	filler := startFiller(ctx, c.policy.Filler, c.speech)
	defer filler.Stop()

	log.Info().Str("tool", tool.Name).Str("action", action).Msg("Executing tool")
	start := time.Now()
	result, err := c.router.CallTool(ctx, tool, arguments, timeout)
	duration := time.Since(start)

	filler.Stop()

	if err != nil {
		return c.failureResult(ctx, tool, arguments, action, duration, err)
	}

	log.Info().
		Str("tool", tool.Name).
		Dur("duration", duration).
		Msg("Tool completed")

	summary := c.describer.Summarize(action, result)
	c.say(ctx, summary)

	argsHash := hashArguments(arguments)
	c.history.Append(ExecutionRecord{
		Tool:     tool.Name,
		Action:   action,
		ArgsHash: argsHash,
		Success:  true,
		Duration: duration,
	})

	return ExecutionResult{
		Success:  true,
		Tool:     tool.Name,
		Action:   action,
		Result:   result,
		Summary:  summary,
		ArgsHash: argsHash,
	}
}

func (c *Coordinator) failureResult(ctx context.Context, tool router.ToolSpec, arguments map[string]interface{}, action string, duration time.Duration, err error) ExecutionResult {
	c.history.Append(ExecutionRecord{
		Tool:     tool.Name,
		Action:   action,
		ArgsHash: hashArguments(arguments),
		Success:  false,
		Duration: duration,
	})

	if transport.IsTimeout(err) {
		log.Error().
			Str("tool", tool.Name).
			Dur("duration", duration).
			Msg("Tool timed out")
		c.say(ctx, "The tool is taking too long to respond.")
		return ExecutionResult{
			Success: false,
			Error:   "Tool timeout",
			Tool:    tool.Name,
			Action:  action,
		}
	}

	log.Error().
		Err(err).
		Str("tool", tool.Name).
		Dur("duration", duration).
		Msg("Tool execution failed")
	c.say(ctx, describe.ErrorSummary(err.Error()))

	return ExecutionResult{
		Success: false,
		Error:   err.Error(),
		Tool:    tool.Name,
		Action:  action,
	}
}

// RecentExecutions returns the most recent limit records, most-recent-last.
func (c *Coordinator) RecentExecutions(limit int) []ExecutionRecord {
	return c.history.Recent(limit)
}

// say speaks one utterance, logging failures instead of raising them: a
// broken speaker must not change the execution outcome.
func (c *Coordinator) say(ctx context.Context, text string) {
	if err := c.speech.Say(ctx, text); err != nil {
		log.Error().Err(err).Str("text", text).Msg("Speech failed")
	}
}

func (c *Coordinator) confirmTimeout() time.Duration {
	sec := c.policy.ConfirmTimeoutSec
	if sec <= 0 {
		sec = config.DefaultConfig().Policy.ConfirmTimeoutSec
	}
	return time.Duration(sec * float64(time.Second))
}

func (c *Coordinator) toolTimeout() time.Duration {
	sec := c.policy.ToolTimeoutSec
	if sec <= 0 {
		sec = config.DefaultConfig().Policy.ToolTimeoutSec
	}
	return time.Duration(sec * float64(time.Second))
}

func (c *Coordinator) countConfirmation(outcome string) {
	if c.metrics != nil {
		c.metrics.ConfirmationsTotal.WithLabelValues(outcome).Inc()
	}
}

// hashArguments produces a short stable fingerprint of the canonicalized
// arguments, used only for logging and correlation.
func hashArguments(args map[string]interface{}) string {
	data, err := json.Marshal(args)
	if err != nil {
		return "unknown"
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:8]
}
