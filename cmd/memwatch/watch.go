package main

import (
	"fmt"
	"strings"

	"memwatch/process"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print resolved addresses after every poll until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			defer s.Close()

			last := uint64(0)
			sub := s.Mediator().SubscribeWork(func() {
				snap := s.Resolver().Snapshot()
				if !snap.Resolved() || snap.Generation() == last {
					return
				}
				last = snap.Generation()

				parts := []string{fmt.Sprintf("#%d module=%s", snap.Generation(), process.FormatHex(snap.ModuleBase()))}
				for _, name := range snap.Names() {
					parts = append(parts, name+"="+snap.Hex(name))
				}
				fmt.Println(strings.Join(parts, " "))
			})
			defer s.Mediator().Unsubscribe(sub)

			select {
			case <-ctx.Done():
			case <-s.Done():
			}
			log.Infoln("Stopping")
			return nil
		},
	}
}
