package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/noah-isme/trombinoscope-api/internal/dto"
	"github.com/noah-isme/trombinoscope-api/internal/export"
	"github.com/noah-isme/trombinoscope-api/internal/service"
)

type exportOptions struct {
	output   string
	students bool
	projects bool
	grades   bool
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:       "export <xlsx|pdf|photos>",
		Short:     "Render the roster as a workbook, a PDF report or a photo sheet",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{dto.ExportFormatXLSX, dto.ExportFormatPDF, dto.ExportFormatPhotos},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, opts, cmd, args[0])
		},
	}

	defaults := dto.DefaultExportOptions()
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (defaults to the standard download name)")
	cmd.Flags().BoolVar(&opts.students, "students", defaults.IncludeStudents, "include the student sections")
	cmd.Flags().BoolVar(&opts.projects, "projects", defaults.IncludeProjects, "include the project sections")
	cmd.Flags().BoolVar(&opts.grades, "grades", defaults.IncludeGrades, "include grades and averages")

	return cmd
}

func runExport(rootOpts *RootOptions, opts *exportOptions, cmd *cobra.Command, format string) error {
	sess, err := rootOpts.open(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	svc := service.NewExportService(sess.store, &export.HTTPFetcher{Timeout: sess.cfg.PhotoFetchTimeout}, sess.logger)
	request := dto.ExportOptions{
		IncludeStudents: opts.students,
		IncludeProjects: opts.projects,
		IncludeGrades:   opts.grades,
	}
	if opts.output != "" {
		request.Filename = filepath.Base(opts.output)
	}

	var result dto.ExportResult
	switch format {
	case dto.ExportFormatXLSX:
		result, err = svc.Workbook(cmd.Context(), request)
	case dto.ExportFormatPDF:
		result, err = svc.Report(cmd.Context(), request)
	case dto.ExportFormatPhotos:
		result, err = svc.PhotoSheet(cmd.Context(), request)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return err
	}

	path := result.Filename
	if opts.output != "" {
		path = filepath.Join(filepath.Dir(opts.output), result.Filename)
	}
	if err := os.WriteFile(path, result.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	out := printer{format: rootOpts.Format, out: cmd.OutOrStdout()}
	summary := map[string]interface{}{"path": path, "bytes": len(result.Content), "content_type": result.ContentType}
	return out.result(summary, "wrote %s (%d bytes)", path, len(result.Content))
}
