package cmd

import (
	"github.com/spf13/cobra"

	"InkBoard/internal/document"
	"InkBoard/internal/export"
	"InkBoard/internal/state"
	"InkBoard/internal/store"
	"InkBoard/internal/surface"
	"InkBoard/internal/ui"
)

func newViewCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "view <id|file>",
		Short: "Open a document for annotation",
		Long: `Open a stored document in the annotation window. Passing a file
imports it first. Edits are saved back to the store automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := e.cfg
			s, release, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer release()

			id, err := resolveDocument(ctx, s, cfg.Owner, args[0])
			if err != nil {
				return err
			}
			rec, doc, err := loadDocument(ctx, s, id)
			if err != nil {
				return err
			}

			machine := state.NewMachine(state.NewState(cfg.ZoomLimits()))
			machine.Dispatch(state.LoadDocument{
				Document:  doc.Ref(id),
				PageCount: doc.PageCount,
				Pages:     rec.Annotations,
			})

			saver := store.NewAutosaver(s, cfg.AutosaveDelay)
			saver.Watch(machine, id)

			r := document.DefaultRasterizer()
			loader, err := document.NewLoader(r, document.DefaultCacheSize)
			if err != nil {
				return err
			}
			loader.SetDocument(doc)

			ex := export.New(r)
			ex.Scale = cfg.ExportScale
			ex.Quality = cfg.ExportQuality

			ui.RunApp(ui.Session{
				Machine:  machine,
				Document: doc,
				ID:       id,
				Store:    s,
				Loader:   loader,
				Exporter: ex,
				Autosave: saver,
				Board:    surface.Options{Epsilon: cfg.SimplifyEpsilon},
			})
			return nil
		},
	}
}
