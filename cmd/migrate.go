package main

import (
	"fmt"

	"drawflow-backend/internal/storage"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(root *RootOptions) *cobra.Command {
	var backup bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import legacy session data into the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if backup {
				disk, ok := store.(*storage.DiskStorage)
				if !ok {
					return fmt.Errorf("--backup is only supported by the disk store")
				}
				dir, err := disk.Backup()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "backup written to %s\n", dir)
			}

			if err := store.MigrateLegacy(ctx); err != nil {
				return err
			}

			list, err := store.List(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "migration complete, %d session(s) stored\n", len(list))
			return nil
		},
	}

	cmd.Flags().BoolVar(&backup, "backup", false, "back up the disk store before migrating")
	return cmd
}
