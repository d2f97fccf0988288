package cli

import (
	"github.com/spf13/cobra"

	"github.com/noah-isme/trombinoscope-api/internal/service"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard statistics of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := rootOpts.open(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()

			svc := service.NewStatsService(sess.store, nil, "", 0, sess.logger)
			stats, err := svc.Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			out := printer{format: rootOpts.Format, out: cmd.OutOrStdout()}
			return out.result(stats, "%d students, %d modules, %d projects (%.0f%% submitted, average %.1f/20)",
				stats.TotalStudents, stats.TotalModules, stats.TotalProjects, stats.SubmissionRate, stats.AverageGrade)
		},
	}
}
