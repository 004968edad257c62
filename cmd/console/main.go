package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"novusai.org/internal/api"
	"novusai.org/internal/config"
	"novusai.org/internal/conversation"
	"novusai.org/internal/credential"
	"novusai.org/internal/identity"
	"novusai.org/internal/nav"
	"novusai.org/internal/obs"
	"novusai.org/internal/session"
	"novusai.org/internal/stream"
	"novusai.org/internal/synthesis"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:           "novus-console",
		Short:         "Interactive console for the NovusAI synthesis service",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email (prompted commands also work: /login)")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("novus-console %s (%s)\n", version, commit)
		},
	})
	return cmd
}

func run(parent context.Context, cfg *config.Config, email, password string) error {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", obs.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				obs.LogEvent(map[string]any{"level": "warn", "msg": "metrics listener failed", "error": err.Error()})
			}
		}()
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds := credential.NewStore()
	client := api.New(cfg.APIBaseURL, creds,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithRateLimit(cfg.RatePerSec, cfg.RateBurst),
	)
	bus := stream.New()
	mgr := session.NewManager(creds, identity.NewResolver(creds, client), client, session.WithBus(bus))
	store := conversation.NewStore()
	orch := synthesis.New(store, client, synthesis.WithBus(bus))
	bind := nav.New(store, client, nav.WithBus(bus), nav.WithResetDelay(cfg.ResetDelay))

	mgr.Refresh(ctx)
	if email != "" {
		if err := login(ctx, mgr, email, password); err != nil {
			return err
		}
	}

	c := &console{
		cfg:    cfg,
		bus:    bus,
		creds:  creds,
		mgr:    mgr,
		store:  store,
		orch:   orch,
		bind:   bind,
		client: client,
		out:    os.Stdout,
	}
	return c.run(ctx)
}

func login(ctx context.Context, mgr *session.Manager, email, password string) error {
	err := mgr.Login(ctx, email, password)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrPendingApproval):
		fmt.Println("Your account is awaiting approval. You can retry once an admin approves it.")
		return nil
	default:
		return fmt.Errorf("login failed: %w", err)
	}
}
