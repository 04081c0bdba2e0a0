package main

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/tomz197/outgrowth/internal/config"
	internallog "github.com/tomz197/outgrowth/internal/logging"
)

//go:embed index.html
var htmlPage string

var rootCmd = &cobra.Command{
	Use:          "outgrowth-web",
	Short:        "Landing page with SSH connection instructions",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		logger, err := internallog.New(os.Stderr, internallog.Options{
			Level:     settings.LogLevel,
			Format:    settings.LogFormat,
			Prefix:    "web",
			Timestamp: true,
		})
		if err != nil {
			return err
		}

		page := strings.ReplaceAll(htmlPage, "{{.SSHHost}}", settings.DisplayHost)
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, page)
		})

		srv := &http.Server{Addr: settings.WebAddr(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		logger.Info("starting web server", "url", "http://"+settings.WebAddr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			return err
		}
		return nil
	},
}

func init() {
	config.RegisterFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
