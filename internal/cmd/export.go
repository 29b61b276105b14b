package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"InkBoard/internal/document"
	"InkBoard/internal/export"
)

func newExportCmd(e *env) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write an annotated document as a flattened PDF",
		Long: `Render every page with its annotations and write one PDF. Nothing
is written if any page fails.

Examples:
  inkboard export 3f2a... -o notes.pdf
  inkboard export 3f2a... --export-scale 3 --export-quality 85`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, release, err := openStore(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer release()

			rec, doc, err := loadDocument(ctx, s, args[0])
			if err != nil {
				return err
			}

			ex := export.New(document.DefaultRasterizer())
			ex.Scale = e.cfg.ExportScale
			ex.Quality = e.cfg.ExportQuality
			if err := ex.ExportFile(ctx, doc, rec.Annotations, output); err != nil {
				return fmt.Errorf("export %s: %w", rec.Name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d page(s), %d annotation(s))\n", output, doc.PageCount, rec.Annotations.Count())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", export.DefaultFilename, "Output file")
	return cmd
}
