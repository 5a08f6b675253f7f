package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/altinukshini/gha-watch/internal/config"
	"github.com/altinukshini/gha-watch/internal/logging"
	"github.com/altinukshini/gha-watch/internal/logstore"
)

func newLogsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the store of completed job logs",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stored job logs",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openStore(v)
				if err != nil {
					return err
				}
				return listLogs(cmd, store)
			},
		},
		&cobra.Command{
			Use:   "prune",
			Short: "Drop expired logs and shrink the store to its size limit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openStore(v)
				if err != nil {
					return err
				}
				return store.Evict()
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete every stored log",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openStore(v)
				if err != nil {
					return err
				}
				entries, err := store.List()
				if err != nil {
					return err
				}
				for _, e := range entries {
					if err := store.Delete(e.JobID, e.Attempt); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d logs\n", len(entries))
				return nil
			},
		},
	)
	return cmd
}

func openStore(v *viper.Viper) (*logstore.Store, error) {
	log, err := logging.New(v.GetString(config.KeyLogLevel), v.GetString(config.KeyLogFile))
	if err != nil {
		log = zap.NewNop()
	}
	return logstore.New(
		v.GetString(config.KeyLogCacheDir),
		v.GetInt(config.KeyLogCacheSizeMB),
		v.GetDuration(config.KeyLogCacheTTL),
		log,
	)
}

func listLogs(cmd *cobra.Command, store *logstore.Store) error {
	entries, err := store.List()
	if err != nil {
		return err
	}
	total, err := store.TotalSize()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tATTEMPT\tNAME\tSIZE\tSTORED\tLAST USED")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
			e.JobID, e.Attempt, e.JobName,
			humanize.Bytes(uint64(e.Size)),
			humanize.Time(e.StoredAt),
			humanize.RelTime(e.LastAccessed, time.Now(), "ago", "from now"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d logs, %s\n", len(entries), humanize.Bytes(uint64(total)))
	return nil
}
