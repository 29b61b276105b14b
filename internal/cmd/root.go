// Package cmd implements the inkboard command line.
package cmd

import (
	"io"
	"log"

	"github.com/spf13/cobra"

	"InkBoard/internal/config"
)

// env is filled in before any subcommand runs.
type env struct {
	cfg *config.Config
}

// NewRootCmd creates the root command for inkboard.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "inkboard",
		Short: "Annotate PDFs and images with pen, highlighter, shapes and text",
		Long: `Draw on top of PDF pages and images, keep the annotations in a
document store and export the result as a flattened PDF.

inkboard provides tools to:
- Import documents into a local store or a store server
- Annotate them in a desktop window
- Export annotated documents to PDF
- Share a store with other machines on the network`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			e.cfg = cfg
			setupLogging(cfg)
			if cfg.IsDebug() {
				log.Printf("[CLI] %s", cfg)
			}
			return nil
		},
	}
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(newImportCmd(e))
	root.AddCommand(newViewCmd(e))
	root.AddCommand(newExportCmd(e))
	root.AddCommand(newServeCmd(e))
	root.AddCommand(newInfoCmd(e))

	return root
}

// setupLogging keeps the bracketed component logs for info and debug and
// silences them for quieter levels; errors still reach the user through
// command results.
func setupLogging(cfg *config.Config) {
	switch cfg.LogLevel {
	case "debug":
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.SetOutput(logOutput)
	case "info":
		log.SetFlags(log.LstdFlags)
		log.SetOutput(logOutput)
	default:
		log.SetOutput(io.Discard)
	}
}
