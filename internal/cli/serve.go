package cli

import (
	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/ec2-automations/internal/api"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve handlers over a local HTTP endpoint",
		Long:  "Serve POST /invoke/{handler} so events can be replayed against real AWS or an emulator set by AWS_ENDPOINT_URL.",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := loadSession(cmd.Context())
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("host") {
				sess.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				sess.cfg.Server.Port = port
			}

			return api.NewServer(sess.cfg, sess.deps, sess.logger).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host (overrides SERVER_HOST)")
	cmd.Flags().IntVar(&port, "port", 9000, "listen port (overrides SERVER_PORT)")

	return cmd
}
