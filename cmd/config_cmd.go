package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vkviyu/wsbridge/recorder"
	"github.com/vkviyu/wsbridge/utils/jsonutil"
)

func (w *WsBridgeCmd) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := w.config.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func (w *WsBridgeCmd) newRecordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records [session-id]",
		Short: "List recorded sessions, or print the frames of one session as JSON lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := w.config.Recorder
			store, err := recorder.Open(recorder.Backend(rc.Backend), rc.Path)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no recorder backend configured")
			}
			defer store.Close()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				ids, err := store.Sessions()
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}
			records, err := store.Records(args[0])
			if err != nil {
				return err
			}
			for _, rec := range records {
				line, err := jsonutil.Marshal(rec)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\n", line)
			}
			return nil
		},
	}
}
