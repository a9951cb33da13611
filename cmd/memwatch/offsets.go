package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"memwatch/config"
	"memwatch/offsets"

	"github.com/spf13/cobra"
)

func offsetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "offsets",
		Short: "Print the offset table from --settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := config.NewSource(cfg.Settings).Load(cmd.Context())
			if err != nil {
				return err
			}
			table, err := offsets.Load(raw)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			for _, name := range table.Names() {
				off, _ := table.Get(name)
				fmt.Fprintf(w, "%s\t%s\n", name, off.ToString())
			}
			return w.Flush()
		},
	}
}
