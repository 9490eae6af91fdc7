package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/reclip/internal/logging"
	"go.klb.dev/reclip/internal/template"
)

func newTemplatesCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "templates",
		Short:   "List the templates in the templates directory",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runTemplates(v) },
	}

	f := cmd.Flags()
	f.String("templates-dir", defaultTemplatesDir(), "directory of .json/.toml templates")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runTemplates(v *viper.Viper) error {
	logging.Resolve(false, v.GetString("log-format"), firstNonEmpty(v.GetString("log-level"), "warn"))

	dir := v.GetString("templates-dir")
	set, err := template.Load(dir)
	if err != nil {
		return err
	}
	if set.Len() == 0 {
		fmt.Printf("No templates in %s.\n", dir)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "NAME\tPROVIDER\tMODEL\tINPUT\tDESCRIPTION\n")
	for _, name := range set.Names() {
		t, _ := set.Get(name)
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.Name, t.APIProvider, t.Model, t.InputType, t.Description)
	}
	return tw.Flush()
}

func firstNonEmpty(vals ...string) string {
	for _, s := range vals {
		if s != "" {
			return s
		}
	}
	return ""
}
