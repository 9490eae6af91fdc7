package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newToggleCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "toggle",
		Short:   "Show or hide the window, like the global hotkey",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := dialDaemon(v)
			if err != nil {
				return err
			}
			defer c.Close()
			ctx, cancel := rpcContext()
			defer cancel()
			return c.Toggle(ctx)
		},
	}
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}

func newSelectCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "select <template>",
		Short:   "Change the selected template",
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			c, err := dialDaemon(v)
			if err != nil {
				return err
			}
			defer c.Close()
			ctx, cancel := rpcContext()
			defer cancel()
			return c.Select(ctx, args[0])
		},
	}
	addSocketFlag(cmd)
	addConfigFlag(cmd)
	return cmd
}
