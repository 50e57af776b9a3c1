package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hookjudge-ai/hookjudge/internal/config"
	"github.com/hookjudge-ai/hookjudge/internal/hook"
	"github.com/hookjudge-ai/hookjudge/internal/judge"
	"github.com/hookjudge-ai/hookjudge/internal/oracle"
	"github.com/hookjudge-ai/hookjudge/internal/schema"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	policyName   string
	modelFlag    string
	providerFlag string
	timeoutFlag  time.Duration
)

const (
	defaultPolicy  = "validate_bq_query"
	defaultTimeout = 60 * time.Second
)

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	rootCmd := &cobra.Command{
		Use:   "hookjudge",
		Short: "LLM-backed PreToolUse permission judge",
		Long: "hookjudge reads one PreToolUse hook request from stdin, asks a judge model\n" +
			"whether the tool call should be allowed, and writes the decision envelope to\n" +
			"stdout. It always exits 0 with a schema-valid envelope; every failure path\n" +
			"resolves to deny. Diagnostics go to stderr only.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJudge(cmd.InOrStdin(), cmd.OutOrStdout())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "external policy YAML file (overrides --policy)")
	rootCmd.PersistentFlags().StringVar(&policyName, "policy", defaultPolicy, "builtin policy name")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "override judge model")
	rootCmd.PersistentFlags().StringVarP(&providerFlag, "provider", "p", "", "override oracle provider")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "total decision deadline, retries included (0 = policy/default)")

	rootCmd.AddCommand(newVersionCmd(version, commit, date))
	rootCmd.AddCommand(newPoliciesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runJudge is the whole pipeline for one invocation. It always writes exactly
// one envelope to out and always returns nil: a hook that crashes or stays
// silent would stall the calling agent, so every failure is converted into a
// deny envelope instead.
func runJudge(in io.Reader, out io.Writer) error {
	gate, err := schema.NewGate()
	if err != nil {
		// Embedded schemas failed to compile; nothing to validate with, so
		// deny outright.
		fmt.Fprintln(os.Stderr, "hookjudge:", err)
		return emit(out, judge.Synthesize(judge.Outcome{
			Kind: judge.FailureBadConfig, Detail: "internal schema setup failed",
		}, nil))
	}

	policy, err := resolvePolicy()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hookjudge:", err)
		return emit(out, judge.Synthesize(judge.Outcome{
			Kind: judge.FailureBadConfig, Detail: err.Error(),
		}, nil))
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hookjudge: read stdin:", err)
		return emit(out, judge.Synthesize(judge.Outcome{
			Kind: judge.FailureBadRequest, Detail: "hook input could not be read",
		}, nil))
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		fmt.Fprintln(os.Stderr, "hookjudge: invalid input JSON:", err)
		return emit(out, judge.Synthesize(judge.Outcome{
			Kind: judge.FailureBadRequest, Detail: "hook input is not valid JSON",
		}, nil))
	}
	if res := gate.Validate(schema.Request, doc); !res.OK() {
		fmt.Fprintln(os.Stderr, "hookjudge: invalid hook input:", res.Summary())
		return emit(out, judge.Synthesize(judge.Outcome{
			Kind: judge.FailureBadRequest, Detail: res.Summary(),
		}, nil))
	}

	var input hook.Input
	if err := json.Unmarshal(raw, &input); err != nil {
		fmt.Fprintln(os.Stderr, "hookjudge: decode hook input:", err)
		return emit(out, judge.Synthesize(judge.Outcome{
			Kind: judge.FailureBadRequest, Detail: "hook input could not be decoded",
		}, nil))
	}

	o, err := oracle.New(oracle.Options{
		Provider: policy.Provider,
		Model:    policy.Model,
		BaseURL:  policy.BaseURL,
		APIKey:   policy.APIKey,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "hookjudge:", err)
		return emit(out, judge.Synthesize(judge.Outcome{
			Kind: judge.FailureBadConfig, Detail: "oracle provider is not configured",
		}, input.ToolParameters))
	}

	ctx, cancel := context.WithTimeout(context.Background(), decisionTimeout(policy))
	defer cancel()

	outcome := judge.New(o, gate, policy).Decide(ctx, &input)
	if outcome.Kind != judge.FailureNone {
		fmt.Fprintf(os.Stderr, "hookjudge: decision failed after %d attempt(s): %s\n",
			outcome.Attempts, outcome.Detail)
	}
	return emit(out, judge.Synthesize(outcome, input.ToolParameters))
}

// resolvePolicy picks the external file when --config is set, otherwise the
// named builtin, then applies CLI flag overrides.
func resolvePolicy() (*config.Policy, error) {
	var (
		p   *config.Policy
		err error
	)
	if cfgFile != "" {
		p, err = config.Load(cfgFile)
	} else {
		name := policyName
		if name == "" {
			name = defaultPolicy
		}
		p, err = config.LoadBuiltin(name)
	}
	if err != nil {
		return nil, err
	}

	if providerFlag != "" {
		p.Provider = providerFlag
	}
	if modelFlag != "" {
		p.Model = modelFlag
	}
	return p, nil
}

// decisionTimeout resolves flag > policy > default.
func decisionTimeout(p *config.Policy) time.Duration {
	if timeoutFlag > 0 {
		return timeoutFlag
	}
	if p.TimeoutSeconds > 0 {
		return time.Duration(p.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// emit writes the envelope to stdout. Write failures are logged to stderr but
// never change the exit status.
func emit(out io.Writer, env hook.Envelope) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		fmt.Fprintln(os.Stderr, "hookjudge: write response:", err)
	}
	return nil
}
