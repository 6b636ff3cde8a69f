package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/ec2-automations/internal/domain/report"
	automation "github.com/pratik-mahalle/ec2-automations/internal/handlers"
	"github.com/pratik-mahalle/ec2-automations/pkg/client"
)

func newInvokeCmd() *cobra.Command {
	var (
		eventPath string
		requestID string
		serverURL string
	)

	cmd := &cobra.Command{
		Use:       "invoke <handler>",
		Short:     "Run one handler once against an event",
		Long:      "Run one handler once against an event read from a file or stdin (-). Without --event an empty scheduled event is used.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: automation.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readEvent(cmd.InOrStdin(), eventPath)
			if err != nil {
				return err
			}

			if serverURL == "" {
				serverURL = viper.GetString("server_url")
			}

			var resp report.Response
			if serverURL != "" {
				resp, err = invokeRemote(cmd.Context(), serverURL, args[0], payload)
			} else {
				resp, err = invokeLocal(cmd.Context(), args[0], requestID, payload)
			}
			if err != nil {
				return err
			}

			if err := printResponse(cmd.OutOrStdout(), getOutputFormat(), resp); err != nil {
				return err
			}

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%s returned status %d", args[0], resp.StatusCode)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "", "event JSON file, or - for stdin")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request id to log (default: generated)")
	cmd.Flags().StringVar(&serverURL, "server", "", "invoke through a running ec2auto serve instead of in process")

	return cmd
}

func invokeLocal(ctx context.Context, name, requestID string, payload []byte) (report.Response, error) {
	sess, err := loadSession(ctx)
	if err != nil {
		return report.Response{}, err
	}

	h, err := automation.New(name, sess.deps)
	if err != nil {
		return report.Response{}, err
	}

	if requestID != "" {
		ctx = automation.WithRequestID(ctx, requestID)
	}

	return automation.NewRunner(sess.logger, sess.cfg.Metrics).Run(ctx, h, payload), nil
}

func invokeRemote(ctx context.Context, serverURL, name string, payload []byte) (report.Response, error) {
	c := client.NewClient(client.Config{BaseURL: serverURL})

	resp, err := c.Invoke(ctx, name, payload)
	if err != nil {
		return report.Response{}, err
	}
	return report.Response{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

func readEvent(stdin io.Reader, path string) ([]byte, error) {
	switch path {
	case "":
		return []byte("{}"), nil
	case "-":
		payload, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read event from stdin: %w", err)
		}
		return payload, nil
	default:
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read event file: %w", err)
		}
		return payload, nil
	}
}

func printResponse(w io.Writer, format string, resp report.Response) error {
	if format == "json" {
		return printJSON(w, resp)
	}

	res, err := resp.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	if format == "yaml" {
		return printYAML(w, map[string]interface{}{
			"statusCode": resp.StatusCode,
			"result":     res,
		})
	}

	table := NewTable(w, "FIELD", "VALUE")
	table.AddRow("Status", fmt.Sprint(resp.StatusCode))
	table.AddRow("Outcome", formatOutcome(string(res.Outcome)))
	table.AddRow("Message", res.Message)
	if res.Code != "" {
		table.AddRow("Code", res.Code)
	}
	if res.NoAction {
		table.AddRow("No action", "true")
	}
	table.AddRow("Affected", joinIDs(res.Affected))
	if len(res.Attempted) > 0 {
		table.AddRow("Attempted", joinIDs(res.Attempted))
	}
	if len(res.Failed) > 0 {
		table.AddRow("Failed", formatFailures(res.Failed))
	}
	table.Render()
	return nil
}
