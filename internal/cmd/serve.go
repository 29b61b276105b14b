package cmd

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	boardnet "InkBoard/internal/net"
)

func newServeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Share the local store with other machines",
		Long: `Serve the local document store over a websocket so boards on other
machines can use it with --store host:port, or --store auto when the
server is advertised over mDNS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := e.cfg
			fs, err := openFileStore(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.ServeAdvertise {
				mdnsServer, err := boardnet.Advertise(cfg.ServePort)
				if err != nil {
					log.Printf("[NET] mDNS advertising failed: %v", err)
				} else {
					defer mdnsServer.Shutdown()
				}
			}

			hostIP, err := boardnet.GetOutgoingIP()
			if err != nil {
				hostIP = "localhost"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on ws://%s:%d%s\n", fs.Dir(), hostIP, cfg.ServePort, boardnet.SocketPath)

			return boardnet.NewServer(fs).ListenAndServe(ctx, cfg.ServePort)
		},
	}
}
