// Package app wires configuration and services into the CLI commands. The
// CLI stands in for the chat action layer: it hands parameter objects to the
// orchestrator and renders the returned result.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/asterion-dev/tradepath/internal/allowance"
	"github.com/asterion-dev/tradepath/internal/cache"
	"github.com/asterion-dev/tradepath/internal/chain"
	"github.com/asterion-dev/tradepath/internal/config"
	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/execution"
	"github.com/asterion-dev/tradepath/internal/httpx"
	"github.com/asterion-dev/tradepath/internal/orchestrator"
	"github.com/asterion-dev/tradepath/internal/out"
	"github.com/asterion-dev/tradepath/internal/price"
	"github.com/asterion-dev/tradepath/internal/quote"
	"github.com/asterion-dev/tradepath/internal/rules"
	"github.com/asterion-dev/tradepath/internal/version"
	"github.com/asterion-dev/tradepath/internal/wallet"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{stdout: stdout, stderr: stderr, now: time.Now}
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	log      *slog.Logger

	httpClient *httpx.Client
	cache      *cache.Store
	journal    *execution.Journal

	staticQuotes bool
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	state.close()
	if err == nil {
		return 0
	}
	var rendered *renderedError
	if errors.As(err, &rendered) {
		if rendered.kind == tperr.KindValidation {
			return 2
		}
		return 1
	}
	env := out.Failure(uuid.NewString(), err, 0)
	_ = out.Render(r.stderr, env, state.settings.OutputMode)
	if tperr.KindOf(err) == tperr.KindValidation {
		return 2
	}
	return 1
}

// renderedError marks a failure whose envelope a command already wrote, so
// the runner only maps it to an exit code.
type renderedError struct {
	kind tperr.Kind
}

func (e *renderedError) Error() string { return string(e.kind) }

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Onchain agent swap and trading-rule execution",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return tperr.Wrap(tperr.KindValidation, "load configuration", err)
			}
			s.settings = settings
			s.log = slog.New(slog.NewTextHandler(s.runner.stderr, nil))
			s.httpClient = httpx.New(settings.Timeout, settings.Retries)
			if settings.CacheEnabled {
				store, err := cache.Open(settings.CachePath, settings.CacheLockPath)
				if err != nil {
					s.log.Warn("cache unavailable", "error", err)
				} else {
					s.cache = store
				}
			}
			journal, err := execution.OpenJournal(settings.JournalPath, settings.JournalLockPath)
			if err != nil {
				s.log.Warn("order journal unavailable", "error", err)
			} else {
				s.journal = journal
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	// Accept snake_case spellings of flag names.
	flags.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	flags.StringVar(&s.flags.ConfigPath, "config", "", "path to config file")
	flags.BoolVar(&s.flags.JSON, "json", false, "render JSON output")
	flags.BoolVar(&s.flags.Plain, "plain", false, "render plain text output")
	flags.StringVar(&s.flags.Timeout, "timeout", "", "HTTP timeout (e.g. 10s)")
	flags.IntVar(&s.flags.Retries, "retries", -1, "retry budget for service calls")
	flags.BoolVar(&s.flags.NoCache, "no-cache", false, "disable the price cache")
	flags.BoolVar(&s.staticQuotes, "static-quotes", false, "use the static quote double instead of the aggregator")

	cmd.AddCommand(s.newSwapCommand())
	cmd.AddCommand(s.newDustCommand())
	cmd.AddCommand(s.newLimitOrderCommand())
	cmd.AddCommand(s.newRuleCommand())
	cmd.AddCommand(s.newOrdersCommand())
	cmd.AddCommand(newVersionCommand(s))
	return cmd
}

func (s *runtimeState) close() {
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.journal != nil {
		_ = s.journal.Close()
	}
}

// buildOrchestrator assembles the pipeline for one chain. The backend is
// dialed per invocation and closed by the caller.
func (s *runtimeState) buildOrchestrator(ctx context.Context, chainID int64) (*orchestrator.Orchestrator, func(), error) {
	chainCfg, ok := s.settings.Chains[chainID]
	if !ok || chainCfg.RPCURL == "" {
		return nil, nil, tperr.New(tperr.KindValidation, "no rpc url configured for chain")
	}
	backend, err := chain.Dial(ctx, chainCfg.RPCURL)
	if err != nil {
		return nil, nil, err
	}

	registry := s.settings.Registry()
	oracle := price.NewOracle(s.httpClient, s.settings.PriceServiceURL, registry, s.cache)

	var quotes quote.Provider
	if s.staticQuotes {
		quotes = quote.NewStatic()
	} else {
		agg := quote.NewAggregator(s.httpClient, s.settings.AggregatorURL, s.settings.AggregatorAPIKey, registry)
		if s.settings.SwapFeeBps > 0 {
			agg = agg.WithIntegratorFee(s.settings.SwapFeeBps, s.settings.SwapFeeRecipient)
		}
		quotes = agg
	}

	sender := wallet.NewService(s.httpClient, s.settings.WalletServiceURL, s.settings.WalletServiceAPIKey)
	executor := execution.NewExecutor(backend, sender, execution.Options{
		PollInterval:   s.settings.PollInterval,
		ConfirmTimeout: s.settings.ConfirmTimeout,
		GasBuffer:      s.settings.GasBuffer,
	}, s.log)
	manager := allowance.NewManager(backend, executor, s.log)
	creator := rules.NewClient(s.httpClient, s.settings.RuleServiceURL, s.settings.RuleServiceAPIKey)

	orch := orchestrator.New(oracle, quotes, manager, executor, creator, s.journal, s.log)
	return orch, backend.Close, nil
}

// ruleOrchestrator wires only the rule-creation path. Rules are chain
// agnostic, so no RPC backend is dialed.
func (s *runtimeState) ruleOrchestrator() *orchestrator.Orchestrator {
	creator := rules.NewClient(s.httpClient, s.settings.RuleServiceURL, s.settings.RuleServiceAPIKey)
	return orchestrator.New(nil, nil, nil, nil, creator, s.journal, s.log)
}

func newVersionCommand(s *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Printf("%s %s\n", version.CLIName, version.Long())
			return nil
		},
	}
}
