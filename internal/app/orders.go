package app

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/out"
)

func (s *runtimeState) newOrdersCommand() *cobra.Command {
	var (
		status string
		limit  int
		id     string
	)
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect the local order journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.journal == nil {
				return tperr.New(tperr.KindUnavailable, "order journal is not available")
			}
			start := s.runner.now()
			var data any
			if id != "" {
				record, err := s.journal.Get(id)
				if err != nil {
					return err
				}
				data = record
			} else {
				records, err := s.journal.List(status, limit)
				if err != nil {
					return err
				}
				data = records
			}
			env := out.Success(uuid.NewString(), data, s.runner.now().Sub(start))
			return out.Render(cmd.OutOrStdout(), env, s.settings.OutputMode)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "show a single order by id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, confirmed, failed, timed_out)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to return")
	return cmd
}
