package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newImportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Add PDFs or images to the store",
		Long: `Add documents to the configured store and print their ids.

Examples:
  inkboard import report.pdf scan.png
  inkboard import --store auto slides.pdf   # store on a discovered server`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, release, err := openStore(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer release()

			for _, path := range args {
				id, doc, err := importFile(ctx, s, e.cfg.Owner, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d page(s)\n", id, doc.Name, doc.PageCount)
			}
			return nil
		},
	}
}
