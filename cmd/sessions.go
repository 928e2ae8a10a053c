package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"drawflow-backend/internal/bridge"
	"drawflow-backend/internal/diagram"
	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"

	"github.com/spf13/cobra"
)

func NewSessionsCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage stored sessions",
	}

	cmd.AddCommand(newSessionsListCommand(root))
	cmd.AddCommand(newSessionsDeleteCommand(root))
	cmd.AddCommand(newSessionsExportCommand(root))
	return cmd
}

func newSessionsListCommand(root *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tMESSAGES\tDIAGRAM\tUPDATED")
			for _, md := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%s\n", md.ID, md.Title, md.MessageCount, md.HasDiagram, md.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSessionsDeleteCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>...",
		Short: "Delete sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, id := range args {
				if err := store.Delete(ctx, id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return nil
		},
	}
}

func newSessionsExportCommand(root *RootOptions) *cobra.Command {
	var (
		format string
		outDir string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Write a session's diagram to a .drawio or .svg file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStore(ctx, root.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			session, err := store.Get(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load %s: %w", args[0], err)
			}
			if !diagram.IsRealDiagram(session.DiagramXML) {
				return fmt.Errorf("session %s has no diagram", session.ID)
			}

			base := name
			if base == "" {
				base = session.ID
			}
			artifact, err := exportDiagram(ctx, root, session.DiagramXML, base, model.SaveFormat(format), session.ID)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return err
			}
			path := filepath.Join(outDir, artifact.Filename)
			if err := os.WriteFile(path, artifact.Content, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(model.SaveDrawio), "file format (drawio|svg)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&name, "name", "", "file name without extension (default: session id)")
	return cmd
}

// exportDiagram renders markup through an in-process editor.
func exportDiagram(ctx context.Context, root *RootOptions, markup, base string, format model.SaveFormat, sessionID string) (*editor.Artifact, error) {
	lb := bridge.NewLoopback()
	ed := editor.New(lb, root.cfg.Editor, nil)
	if err := lb.Mount(ctx, ed); err != nil {
		return nil, err
	}

	if verr := ed.LoadDiagram(ctx, markup, false); verr != nil {
		return nil, verr
	}
	return ed.SaveToFile(ctx, base, format, sessionID)
}
