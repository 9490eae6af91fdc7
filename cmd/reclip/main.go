// reclip: double-copy clipboard automation through language models.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "reclip",
		Short: "Send double-copied clipboard content through a language model",
		Long: `reclip watches the clipboard for a double copy (the same text copied twice
within half a second). It sends what was copied to a language model using the
selected template and puts the answer back on the clipboard.

Run "reclip run" to start the daemon. The other sub-commands talk to a running
daemon over its local socket.

Config file search order (first found wins):
  /etc/reclip/reclip.toml
  $HOME/.config/reclip/reclip.toml
  path supplied via --config

All flags can be set via RECLIP_<FLAG> env vars (dashes become underscores)
or config-file keys. See "reclip run --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newToggleCmd(),
		newSelectCmd(),
		newProcessCmd(),
		newTemplatesCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("reclip %s\n", Version)
		},
	}
}
