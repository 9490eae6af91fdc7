package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/reclip/internal/control"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the daemon's state",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	f := cmd.Flags()
	f.Bool("json", false, "output raw JSON")
	addSocketFlag(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runStatus(v *viper.Viper) error {
	c, err := dialDaemon(v)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := rpcContext()
	defer cancel()
	st, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(st, "", "  ")
		fmt.Println(string(enc))
		return nil
	}
	printStatus(st)
	return nil
}

func printStatus(st *control.StatusResponse) {
	state := "idle"
	if st.Busy {
		state = "processing"
	}
	visible := "hidden"
	if st.Visible {
		visible = "shown"
	}
	input := st.InputKind
	if input == "" {
		input = "-"
	}

	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Socket:\t%s\n", st.Socket)
	fmt.Fprintf(w, "State:\t%s\n", state)
	fmt.Fprintf(w, "Window:\t%s\n", visible)
	fmt.Fprintf(w, "Template:\t%s (%d available)\n", st.Template, len(st.Templates))
	fmt.Fprintf(w, "Input:\t%s\n", input)
	fmt.Fprintf(w, "History:\t%d\n", st.History)
	fmt.Fprintf(w, "Pending:\t%d\n", st.Pending)
	if st.LastError != "" {
		fmt.Fprintf(w, "Last error:\t%s\n", st.LastError)
	}
	_ = w.Flush()
}
