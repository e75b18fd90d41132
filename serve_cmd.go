package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/capvox/capvox/bridge"
	"github.com/capvox/capvox/caption"
)

var (
	serveAddr string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the remote player bridge",
		Long:  paragraph(fmt.Sprintf("\nListen for a remote media player over a %s. The player streams its clock and captions in; capvox speaks and sends rate commands back.", keyword("websocket"))),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := caption.NewStore()
			controller, sink, err := buildEngine(cmd, store)
			if err != nil {
				return err
			}
			defer sink.Close() //nolint:errcheck

			addr := serveAddr
			if addr == "" {
				addr = viper.GetString("serve.addr")
			}
			return bridge.NewServer(controller).ListenAndServe(addr)
		},
	}
)

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from config)")
}
