package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samirrijal/geosurvey/internal/adapters/tabular"
	"github.com/samirrijal/geosurvey/internal/core/domain"
)

type svcKey struct{}

// newRootCmd builds the importer CLI. open is called once before any
// subcommand that needs storage. The returned release closes whatever open
// handed out and must run after Execute, whether or not the command failed.
func newRootCmd(open opener) (*cobra.Command, func()) {
	var closeFn func()
	release := func() {
		if closeFn != nil {
			closeFn()
			closeFn = nil
		}
	}

	root := &cobra.Command{
		Use:           "importer",
		Short:         "Import, export and template survey location sheets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["offline"] == "true" {
				return nil
			}
			svc, closer, err := open(cmd.Context())
			if err != nil {
				return err
			}
			closeFn = closer
			cmd.SetContext(context.WithValue(cmd.Context(), svcKey{}, svc))
			return nil
		},
	}
	root.SetContext(context.Background())

	root.AddCommand(newImportCmd(), newExportCmd(), newTemplateCmd())
	return root, release
}

func servicesFrom(cmd *cobra.Command) *services {
	svc, _ := cmd.Context().Value(svcKey{}).(*services)
	return svc
}

func newImportCmd() *cobra.Command {
	var (
		code    string
		preview bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a .csv or .xlsx sheet and commit it as one batch",
		Long: `Reads FILE, checks every row against the project, and writes all rows in a
single batch. The first invalid row aborts the import and nothing is written.`,
		Example: `  importer import --project LK-01 wells.xlsx
  importer import --project LK-01 --preview wells.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := servicesFrom(cmd)
			ctx := cmd.Context()

			project, err := svc.Projects.GetByCode(ctx, code)
			if err != nil {
				return fmt.Errorf("project %q: %w", code, err)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			if preview {
				p, err := svc.Imports.Preview(ctx, project.ID, args[0], data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d rows read\n", len(p.Candidates))
				if p.Error != nil {
					return p.Error
				}
				fmt.Fprintln(cmd.OutOrStdout(), "all rows valid")
				return nil
			}

			res, err := svc.Imports.ImportFile(ctx, project.ID, args[0], data)
			if err != nil {
				return describe(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully inserted %d locations into %s\n", res.Inserted, project.Code)
			return nil
		},
	}

	cmd.Flags().StringVarP(&code, "project", "p", "", "project code the rows belong to")
	cmd.Flags().BoolVar(&preview, "preview", false, "validate only, write nothing")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newExportCmd() *cobra.Command {
	var code, format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a project's locations to a sheet",
		Example: `  importer export --project LK-01 --format xlsx -o wells.xlsx
  importer export --project LK-01 > wells.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := servicesFrom(cmd)
			project, err := svc.Projects.GetByCode(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("project %q: %w", code, err)
			}
			data, err := svc.Locations.Export(cmd.Context(), project.ID, formatFor(format, out))
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, data)
		},
	}

	cmd.Flags().StringVarP(&code, "project", "p", "", "project code")
	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or xlsx (default from -o extension, else csv)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newTemplateCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:         "template",
		Short:       "Write an empty import sheet",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := tabular.New().WriteTemplate(formatFor(format, out))
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, data)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "csv or xlsx (default from -o extension, else csv)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	return cmd
}

// formatFor picks the explicit format, else the output file's extension.
func formatFor(format, out string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	if f, err := tabular.FormatFromFilename(out); err == nil {
		return f
	}
	return tabular.FormatCSV
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// describe prefixes pipeline errors with the message shown to surveyors.
func describe(err error) error {
	switch {
	case errors.Is(err, domain.ErrImportFailed):
		return fmt.Errorf("unable to add datasets: %w", err)
	case errors.Is(err, domain.ErrInvalidProjectCode):
		return fmt.Errorf("invalid project code in sheet: %w", err)
	case errors.Is(err, domain.ErrMissingOrMalformedField):
		return fmt.Errorf("missing or malformed field in sheet: %w", err)
	}
	return err
}
