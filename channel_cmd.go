package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/vortaro/internal/freshness"
	"github.com/dgnsrekt/vortaro/internal/freshness/sqlite"
)

var (
	channelCmd = &cobra.Command{
		Use:   "channel",
		Short: "Inspect the shared freshness channel",
		Long: paragraph(fmt.Sprintf("\n%s the SQLite freshness channel, where every session records the item that may currently play.",
			keyword("Inspect"))),
		Args: cobra.NoArgs,
	}

	channelShowCmd = &cobra.Command{
		Use:     "show SESSION",
		Short:   "Print the record of a session as JSON",
		Example: paragraph("vortaro channel show 0b6c1f0e-3d4a-4d8e-9a51-7f2b1c9e6a10"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			rec, ok, err := store.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no record for %s", freshness.Key(args[0]))
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	channelListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the sessions in the channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			ids, err := store.Sessions(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, id := range ids {
				rec, ok, err := store.Read(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, rec.Epoch, humanize.Time(rec.PublishedAt)) //nolint:errcheck
			}
			return w.Flush()
		},
	}
)

func init() {
	channelCmd.AddCommand(channelShowCmd, channelListCmd)
}

// openStore opens the SQLite channel whatever the configured backend: the
// memory backend has nothing to inspect from another process.
func openStore() (*sqlite.Store, error) {
	path, err := channelPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no channel at %s; run a session with --channel sqlite first", path)
	}
	return sqlite.Open(path)
}
