package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"InkBoard/internal/store"
)

func newInfoCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "info [id]",
		Short: "Show a stored document, or list the local store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if e.cfg.RemoteStore() {
					return errors.New("listing needs a local store; pass a document id")
				}
				fs, err := openFileStore(e.cfg)
				if err != nil {
					return err
				}
				list, err := fs.List(ctx)
				if err != nil {
					return err
				}
				return printList(out, list)
			}

			s, release, err := openStore(ctx, e.cfg)
			if err != nil {
				return err
			}
			defer release()

			rec, err := s.Fetch(ctx, args[0])
			if err != nil {
				return err
			}
			printRecord(out, rec)
			return nil
		},
	}
}

func printList(out io.Writer, list []store.Metadata) error {
	if len(list) == 0 {
		fmt.Fprintln(out, "No documents.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tPAGES\tUPDATED")
	for _, m := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", m.ID, m.Name, m.Type, m.PageCount, m.UpdatedAt.Format(time.DateTime))
	}
	return w.Flush()
}

func printRecord(out io.Writer, rec store.Record) {
	fmt.Fprintf(out, "ID:      %s\n", rec.ID)
	fmt.Fprintf(out, "Name:    %s\n", rec.Name)
	fmt.Fprintf(out, "Type:    %s\n", rec.Type)
	fmt.Fprintf(out, "Owner:   %s\n", rec.Owner)
	fmt.Fprintf(out, "Pages:   %d\n", rec.PageCount)
	fmt.Fprintf(out, "Created: %s\n", rec.CreatedAt.Format(time.DateTime))
	fmt.Fprintf(out, "Updated: %s\n", rec.UpdatedAt.Format(time.DateTime))
	fmt.Fprintf(out, "Annotations: %d\n", rec.Annotations.Count())

	pages := make([]int, 0, len(rec.Annotations))
	for p, list := range rec.Annotations {
		if len(list) > 0 {
			pages = append(pages, p)
		}
	}
	slices.Sort(pages)
	for _, p := range pages {
		fmt.Fprintf(out, "  page %d: %d\n", p+1, len(rec.Annotations[p]))
	}
}
