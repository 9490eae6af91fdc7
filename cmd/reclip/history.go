package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/control"
	"go.klb.dev/reclip/internal/history"
	"go.klb.dev/reclip/internal/ipc"
	"go.klb.dev/reclip/internal/logging"
)

func newHistoryCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent results",
		Long: `Lists recent results, newest first. Reads from the running daemon, or from
the history database in --data-dir when no daemon is running.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runHistory(v) },
	}

	f := cmd.Flags()
	f.IntP("limit", "n", history.DefaultCapacity, "number of entries to show")
	f.Bool("diff", false, "show how each result differs from its source")
	f.String("data-dir", defaultDataDir(), "directory for history and cache")
	addSocketFlag(cmd)
	addConfigFlag(cmd)

	cmd.AddCommand(newHistoryRestoreCmd())
	return cmd
}

func runHistory(v *viper.Viper) error {
	items, err := loadHistory(v)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No history.")
		return nil
	}

	if v.GetBool("diff") {
		color := logging.IsTTY(os.Stdout)
		for _, it := range items {
			fmt.Printf("── %s  %s\n", it.ID, it.Label)
			e := history.Entry{Source: content.Text(it.Source), Result: it.Result}
			fmt.Println(e.Diff(color))
			fmt.Println()
		}
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "ID\tWHEN\tENTRY\n")
	for _, it := range items {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", it.ID, fmtAge(it.Timestamp), it.Label)
	}
	return tw.Flush()
}

func loadHistory(v *viper.Viper) ([]control.HistoryItem, error) {
	limit := v.GetInt("limit")
	if ipc.IsRunning(v.GetString("socket")) {
		c, err := control.Dial(v.GetString("socket"))
		if err != nil {
			return nil, err
		}
		defer c.Close()
		ctx, cancel := rpcContext()
		defer cancel()
		return c.History(ctx, limit)
	}

	store, err := history.OpenStore(v.GetString("data-dir"))
	if err != nil {
		return nil, err
	}
	defer store.Close()
	entries, err := store.Recent(context.Background(), limit)
	if err != nil {
		return nil, err
	}
	items := make([]control.HistoryItem, len(entries))
	for i, e := range entries {
		items[i] = control.NewHistoryItem(e)
	}
	return items, nil
}

func newHistoryRestoreCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Load a history entry back into the window",
		Long: `Loads a history entry back into the running daemon's window. With no daemon
running, prints the stored entry instead.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			if !ipc.IsRunning(v.GetString("socket")) {
				return printStoredEntry(os.Stdout, v.GetString("data-dir"), args[0])
			}
			c, err := control.Dial(v.GetString("socket"))
			if err != nil {
				return err
			}
			defer c.Close()
			ctx, cancel := rpcContext()
			defer cancel()
			return c.Restore(ctx, args[0])
		},
	}
	cmd.Flags().String("data-dir", defaultDataDir(), "directory for history and cache")
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

// printStoredEntry writes one entry from the history database in dataDir.
func printStoredEntry(w io.Writer, dataDir, id string) error {
	store, err := history.OpenStore(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Get(context.Background(), id)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%s\n\nSource:\n%s\n\nResult:\n%s\n", e, e.Source.Describe(), e.Result)
	return nil
}
