package main

import (
	"memwatch/terminal"

	"github.com/spf13/cobra"
)

func consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive console on the attached process",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cancel, s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer s.Close()

			return terminal.New(s).Run()
		},
	}
}
