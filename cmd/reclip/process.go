package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/reclip/internal/control"
)

func newProcessCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Send stdin through a template as if it were double-copied",
		Long: `Reads stdin and hands it to the running daemon, which processes it with the
selected template (or --template) and writes the result to the clipboard.
Pass --image when stdin is a PNG.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runProcess(v) },
	}

	f := cmd.Flags()
	f.String("template", "", "template to select first")
	f.Bool("image", false, "stdin is a PNG image")
	addSocketFlag(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runProcess(v *viper.Viper) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("nothing on stdin")
	}

	req := &control.ProcessRequest{Template: v.GetString("template")}
	if v.GetBool("image") {
		req.PNG = data
	} else {
		req.Text = string(data)
	}

	c, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer c.Close()
	ctx, cancel := rpcContext()
	defer cancel()
	return c.Process(ctx, req)
}
