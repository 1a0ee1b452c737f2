package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/lecture-platform/internal/platform/logging"
	svcconfig "github.com/example/lecture-platform/services/transcript/internal/config"
	"github.com/example/lecture-platform/services/transcript/internal/store"
)

// app carries what the commands share. openStore is replaceable in tests.
type app struct {
	out       io.Writer
	log       *zap.Logger
	backend   string
	openStore func(ctx context.Context, backend string) (store.Store, error)
}

func newApp(out io.Writer) *app {
	return &app{out: out, log: zap.NewNop(), openStore: openConfiguredStore}
}

func openConfiguredStore(ctx context.Context, backend string) (store.Store, error) {
	cfg, err := svcconfig.Load()
	if err != nil {
		return nil, err
	}
	opts := cfg.Store
	if backend != "" {
		opts.Backend = backend
	}
	return store.Open(ctx, opts)
}

func newRootCmd(a *app) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "transcriptctl",
		Short:         "Seed and inspect lecture transcripts",
		Long:          `Imports caption files into the configured transcript store and prints stored transcripts.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if logLevel == "" {
				return nil
			}
			log, err := logging.New(logging.Config{Level: logLevel, Format: logging.FormatConsole, Service: "transcriptctl"})
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.backend, "backend", "", "Store backend (overrides STORE_BACKEND)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log to stderr at this level")

	root.AddCommand(newImportCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newSubmitCmd(a))
	root.AddCommand(newTokenCmd(a))
	return root
}

func (a *app) withStore(ctx context.Context, fn func(store.Store) error) error {
	s, err := a.openStore(ctx, a.backend)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = s.Close() }()
	return fn(s)
}
