package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/service"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo roster when the store is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, cmd, func(svc service.SeedService) (dto.SeedResult, error) {
				return svc.SeedIfEmpty(cmd.Context())
			})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every record and reload the demo roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, cmd, func(svc service.SeedService) (dto.SeedResult, error) {
				return svc.Reset(cmd.Context())
			})
		},
	}
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <roster.json|->",
		Short: "Validate a roster document and upsert it into the store",
		Long: `Validate a roster document against the roster schema and upsert its
students, modules and projects. Pass - to read the document from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return runSeed(rootOpts, cmd, func(svc service.SeedService) (dto.SeedResult, error) {
				return svc.Import(cmd.Context(), payload)
			})
		},
	}
}

func runSeed(opts *RootOptions, cmd *cobra.Command, op func(service.SeedService) (dto.SeedResult, error)) error {
	sess, err := opts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	svc := service.NewSeedService(sess.store, nil, true, "", sess.logger)
	result, err := op(svc)
	if err != nil {
		return err
	}

	out := printer{format: opts.Format, out: cmd.OutOrStdout()}
	if !result.Seeded {
		return out.result(result, "store %s already populated, nothing to do", result.Store)
	}
	return out.result(result, "store %s: %d students, %d modules, %d projects written",
		result.Store, result.Students, result.Modules, result.Projects)
}

func readDocument(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return payload, nil
}
