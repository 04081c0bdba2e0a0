package main

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tomz197/outgrowth/internal/config"
	internallog "github.com/tomz197/outgrowth/internal/logging"
	"github.com/tomz197/outgrowth/internal/loop/client"
	"github.com/tomz197/outgrowth/internal/loop/server"
)

var logFile string

var rootCmd = &cobra.Command{
	Use:          "outgrowth",
	Short:        "Play outgrowth in this terminal",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		return play(cmd.Context(), settings)
	},
}

func init() {
	config.RegisterGameFlags(rootCmd.Flags())
	// The terminal belongs to the game; logs go to a file or nowhere.
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func play(ctx context.Context, settings config.Settings) error {
	var w io.Writer = io.Discard
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer f.Close()
		w = f
	}
	logger, err := internallog.New(w, internallog.Options{
		Level:     settings.LogLevel,
		Format:    settings.LogFormat,
		Timestamp: true,
	})
	if err != nil {
		return err
	}

	gameServer, err := server.NewServer(server.Options{
		Logger:    logger,
		Seed:      settings.Seed,
		Corridors: settings.Corridors,
		MaxDepth:  settings.MaxDepth,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go gameServer.Run(ctx)

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return errors.Wrap(err, "enable raw mode")
	}
	defer func() {
		_ = term.Restore(fd, oldState)
	}()

	c := client.NewClient(gameServer, bufio.NewReader(os.Stdin), os.Stdout, client.ClientOptions{
		Username: os.Getenv("USER"),
	})
	if err := c.Run(); err != nil {
		logger.Error("game error", "err", err)
		return err
	}
	return nil
}
