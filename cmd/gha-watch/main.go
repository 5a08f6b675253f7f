package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/altinukshini/gha-watch/internal/config"
)

var version = "dev"

func init() {
	if version != "dev" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
}

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "gha-watch",
		Short: "Watch GitHub Actions runs, jobs and logs from the terminal",
		Long: `gha-watch polls the GitHub Actions API for workflow runs of one repository
and keeps runs, jobs and step-segmented job logs up to date while you browse them.

The token is read from --token, GHA_WATCH_TOKEN, GH_TOKEN or GITHUB_TOKEN.
Every flag can also be set as GHA_WATCH_<FLAG> or in ~/.config/gha-watch/gha-watch.yaml.

Examples:
  gha-watch -R cli/cli
  gha-watch -R cli/cli --branch trunk --status in_progress
  gha-watch logs list`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.Init(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ~/.config/gha-watch/gha-watch.yaml)")
	pf.String("log-cache-dir", "", "Directory for stored logs of completed jobs")
	pf.Int("log-cache-size-mb", 0, "Max log store size in MB (default 500)")
	pf.Duration("log-cache-ttl", 0, "Log store entry TTL (default 24h)")
	pf.String("log-level", "", "Log level: debug, info, warn, error (default info)")
	pf.String("log-file", "", "Log file (default <tmp>/gha-watch/gha-watch.log)")

	f := root.Flags()
	f.StringP("repo", "R", "", "Repository in owner/repo format (required)")
	f.String("token", "", "GitHub token")
	f.String("api-url", "", "GitHub API base URL, for GitHub Enterprise")
	f.Int("page-size", 0, "Runs per page, 1-100 (default 30)")
	f.Duration("poll-interval", 0, "Run list refresh interval (default 30s)")
	f.Duration("refresh-interval", 0, "Selected run refresh interval (default 5s)")
	f.Int("cache-size", 0, "Job lists and logs kept in memory (default 200)")
	f.Float64("rate-limit", 0, "Max API requests per second, 0 for unlimited")
	f.Int("workers", 0, "Concurrent API requests (default 4)")
	f.String("branch", "", "Only runs on this branch")
	f.String("status", "", "Only runs with this status or conclusion")
	f.String("actor", "", "Only runs triggered by this user")
	f.String("event", "", "Only runs triggered by this event")
	f.String("workflow", "", "Only runs of this workflow (file name or id)")

	bindFlags(v, pf, f)
	root.AddCommand(newLogsCmd(v))
	return root
}

// bindFlags maps every flag onto the config key of the same name, with
// dashes turned into underscores.
func bindFlags(v *viper.Viper, sets ...*pflag.FlagSet) {
	for _, fs := range sets {
		fs.VisitAll(func(fl *pflag.Flag) {
			if fl.Name == "config" {
				return
			}
			_ = v.BindPFlag(flagKey(fl.Name), fl)
		})
	}
}

func flagKey(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
