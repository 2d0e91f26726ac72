package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func buildModelsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "models", Short: "Inspect the model catalog"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog models and whether their weights are present",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTYLE\tBACKEND\tPRESENT\tPATH")
			for _, m := range a.ListModels() {
				backend := string(m.Backend)
				if backend == "" {
					backend = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%s\n", m.ID, m.Style, backend, a.Files.Exists(m), a.Files.LocalPath(m))
			}
			return tw.Flush()
		},
	}
	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete the downloaded weights of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.DeleteModelFile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted weights of %s\n", args[0])
			return nil
		},
	}
	cmd.AddCommand(list, rm)
	return cmd
}
