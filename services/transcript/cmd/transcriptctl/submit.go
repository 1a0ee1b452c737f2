package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/lecture-platform/internal/platform/auth"
	"github.com/example/lecture-platform/internal/platform/natsconn"
	"github.com/example/lecture-platform/services/transcript/internal/worker"
)

func newSubmitCmd(a *app) *cobra.Command {
	var (
		lecture int64
		format  string
		natsURL string
	)
	cmd := &cobra.Command{
		Use:   "submit [file]",
		Short: "Queue a caption file for the ingest worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if lecture <= 0 {
				return errors.New("--lecture must be a positive id")
			}
			f, err := formatFor(format, args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			nc, err := natsconn.Connect(natsconn.Options{URL: natsURL, Name: "transcriptctl", Logger: a.log})
			if err != nil {
				return err
			}
			defer nc.Close()
			js, err := nc.JetStream()
			if err != nil {
				return err
			}
			if err := worker.Submit(js, worker.Job{LectureID: lecture, Format: string(f), Payload: string(data)}); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "lecture %d: queued %s on %s\n", lecture, args[0], worker.SubjectIngest)
			return nil
		},
	}
	cmd.Flags().Int64Var(&lecture, "lecture", 0, "Lecture id the file belongs to")
	cmd.Flags().StringVar(&format, "format", "", "srt, timedtext or json (default: from extension)")
	cmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server (default: NATS_URL)")
	return cmd
}

func newTokenCmd(a *app) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for transcript uploads (uses JWT_SECRET)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			tok, err := auth.Issue([]byte(os.Getenv("JWT_SECRET")), subject, auth.RoleAdmin, ttl)
			if err != nil {
				return fmt.Errorf("JWT_SECRET: %w", err)
			}
			_, err = fmt.Fprintln(a.out, tok)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "transcriptctl", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
