package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/lecture-platform/services/transcript/internal/resolver"
	"github.com/example/lecture-platform/services/transcript/internal/store"
	"github.com/example/lecture-platform/services/transcript/internal/transcript"
)

func newGetCmd(a *app) *cobra.Command {
	var (
		lecture  int64
		pageSize int
		text     bool
	)
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the transcript of a lecture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lecture <= 0 {
				return errors.New("--lecture must be a positive id")
			}
			return a.withStore(cmd.Context(), func(s store.Store) error {
				lines, err := resolver.New(s, resolver.WithPageSize(pageSize), resolver.WithLogger(a.log)).
					LinesForLecture(cmd.Context(), lecture)
				if err != nil {
					return err
				}
				if text {
					for _, l := range lines {
						fmt.Fprintf(a.out, "[%s] %s\n", clock(l.StartMs), l.Content)
					}
					return nil
				}
				b, err := transcript.Lines(lines).MarshalJSON()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, string(b))
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&lecture, "lecture", 0, "Lecture id")
	cmd.Flags().IntVar(&pageSize, "page-size", resolver.DefaultPageSize, "Store page size")
	cmd.Flags().BoolVar(&text, "text", false, "Print timestamped text instead of JSON")
	return cmd
}

// clock formats ms as H:MM:SS.mmm.
func clock(ms int64) string {
	return fmt.Sprintf("%d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
