package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/petasbytes/expense-agent/internal/config"
	"github.com/petasbytes/expense-agent/internal/fsops"
	"github.com/petasbytes/expense-agent/internal/hosting"
	"github.com/petasbytes/expense-agent/internal/hosting/assistants"
	"github.com/petasbytes/expense-agent/internal/hosting/messages"
	"github.com/petasbytes/expense-agent/internal/logging"
	"github.com/petasbytes/expense-agent/internal/provider"
	"github.com/petasbytes/expense-agent/internal/session"
	"github.com/petasbytes/expense-agent/internal/telemetry"
	"github.com/petasbytes/expense-agent/tools"
)

const rule = "============================================================"

func main() {
	// Ctrl-C / SIGTERM cancel the session; teardown still runs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(stdout, "ERROR: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingEndpoint) {
			fmt.Fprintln(stdout, config.MissingEndpointMessage)
		} else {
			fmt.Fprintf(stdout, "ERROR: %v\n", err)
		}
		return 1
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Out: stderr, Pretty: true})

	fmt.Fprintln(stdout, "\n"+rule)
	fmt.Fprintln(stdout, "RFP EXPENSE ANALYZER AGENT")
	fmt.Fprintln(stdout, rule)
	fmt.Fprintf(stdout, "\nProject Endpoint: %.50s...\n", cfg.Endpoint)
	fmt.Fprintf(stdout, "Model: %s\n", cfg.Model)

	fmt.Fprintf(stdout, "\nLoading data from: %s\n", cfg.DataFile)
	res, err := session.LoadResources(cfg.DataFile, cfg.PolicyFile)
	if err != nil {
		fmt.Fprintf(stdout, "ERROR: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "\n--- Data Preview ---")
	fmt.Fprintln(stdout, session.Preview(res.Data, session.PreviewLimit))
	fmt.Fprint(stdout, "--- End Preview ---\n\n")

	rec, err := telemetry.New(telemetry.Options{Enabled: cfg.ObserveJSON, Dir: cfg.EventsDir})
	if err != nil {
		log.Warn().Err(err).Msg("telemetry disabled")
		rec = telemetry.Nop()
	}
	defer rec.Close()

	root, err := fsops.NewRoot(cfg.OutputDir)
	if err != nil {
		fmt.Fprintf(stdout, "ERROR: %v\n", err)
		return 1
	}
	log.Debug().Str("output_dir", root.Dir()).Str("backend", cfg.Backend).Msg("artifacts root ready")

	fmt.Fprintf(stdout, "Connecting to %s backend...\n", cfg.Backend)
	sess := session.New(newService(cfg, log, rec), session.Options{
		Model:     cfg.Model,
		Resources: res,
		Tools:     tools.Registry(tools.NewEnv(root)),
		Out:       stdout,
		Logger:    log,
		Recorder:  rec,
	})

	// Release whatever was created, even after a failed provision or a
	// cancelled session.
	defer func() {
		if err := sess.Teardown(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("cleanup incomplete")
			return
		}
		fmt.Fprint(stdout, "  Thank you for using the RFP Expense Analyzer!\n\n")
	}()

	if err := sess.Provision(ctx); err != nil {
		log.Error().Err(err).Msg("provisioning failed")
		fmt.Fprintf(stdout, "ERROR: %v\n", err)
		return 1
	}

	if err := sess.Run(ctx, stdin); err != nil {
		log.Warn().Err(err).Msg("input closed with error")
	}
	if err := sess.Drain(context.WithoutCancel(ctx)); err != nil {
		log.Error().Err(err).Msg("transcript unavailable")
	}
	return 0
}

func newService(cfg *config.Config, log zerolog.Logger, rec *telemetry.Recorder) hosting.Service {
	if cfg.Backend == config.BackendMessages {
		return messages.New(provider.NewAnthropicClient(cfg.Endpoint, cfg.APIKey), messages.Options{
			MaxToolRounds: cfg.MaxToolRounds,
			TokenBudget:   cfg.TokenBudget,
			Logger:        log.With().Str("backend", config.BackendMessages).Logger(),
			Recorder:      rec,
		})
	}
	return assistants.New(provider.NewAssistantsClient(cfg.Endpoint, cfg.APIKey), assistants.Options{
		PollInterval: cfg.PollInterval,
		Logger:       log.With().Str("backend", config.BackendAssistants).Logger(),
		Recorder:     rec,
	})
}
