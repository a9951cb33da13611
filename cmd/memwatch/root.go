package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"memwatch/config"
	"memwatch/session"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"
)

var (
	cfg = config.Default()
	log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "memwatch"))
)

func Execute() error {
	root := &cobra.Command{
		Use:          "memwatch",
		Short:        "Resolve and watch game memory regions",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfg.Settings, "settings", cfg.Settings, "offsets file or http(s) URL")
	root.PersistentFlags().StringVar(&cfg.ProcessName, "process", cfg.ProcessName, "target process name")
	root.PersistentFlags().IntVar(&cfg.PID, "pid", 0, "attach to this PID instead of looking up --process")
	root.PersistentFlags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "poll interval")

	root.AddCommand(offsetsCmd(), watchCmd(), consoleCmd())

	if err := root.Execute(); err != nil {
		log.Warn("memwatch: ", err)
		return err
	}
	return nil
}

// openSession attaches and starts polling; the context ends on SIGINT or SIGTERM.
func openSession(cmd *cobra.Command) (context.Context, context.CancelFunc, *session.Session, error) {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)

	s, err := session.Open(ctx, newOpener(), cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}

	if err := s.Start(ctx); err != nil {
		s.Close()
		cancel()
		return nil, nil, nil, err
	}
	return ctx, cancel, s, nil
}
