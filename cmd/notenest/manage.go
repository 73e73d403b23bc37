package main

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/aretw0/notenest"
)

func newCmdInit(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a note store",
		Long: heredoc.Doc(`
			Initialize a note store in dir (default: --store or the working
			directory). Running it on an existing store changes nothing.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.v.GetString(keyStore)
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				path = "."
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			repo, err := notenest.Init(ctx, path,
				notenest.WithAdapter(a.v.GetString(keyAdapter)),
				notenest.WithFormat(a.v.GetString(keyFormat)),
				notenest.WithLogger(a.logger),
			)
			if err != nil {
				return fmt.Errorf("initialize store: %w", err)
			}
			if err := repo.Close(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Initialized note store in", path)
			return nil
		},
	}
}

func newCmdDelete(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note from the local store",
		Long: heredoc.Doc(`
			Delete permanently removes a note from the local store. The copy held
			by the note sink is not touched.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete note: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note deleted: %d\n", id)
			return nil
		},
	}
}

func newCmdPush(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "push [id]",
		Short: "Send notes saved offline to the note sink",
		Long: heredoc.Doc(`
			Push writes notes that have no remote id yet to the note sink and
			records the id it assigns. Without an argument every such note is
			pushed.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.endpoint() == "" {
				return fmt.Errorf("push: no note sink configured (--endpoint)")
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				n, err := svc.Push(ctx, id)
				if err != nil {
					return fmt.Errorf("push note %d: %w", id, err)
				}
				fmt.Fprintf(out, "Note %d has remote id %s\n", n.ID, n.RemoteID)
				return nil
			}

			pushed, err := svc.PushPending(ctx)
			fmt.Fprintf(out, "Pushed %d note(s)\n", pushed)
			if err != nil {
				return fmt.Errorf("push: %w", err)
			}
			return nil
		},
	}
}

func newCmdVersion() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of notenest",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "notenest version %s\n", notenest.Version)
		},
	}
}
