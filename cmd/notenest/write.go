package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aretw0/notenest/pkg/core"
)

// noteFlags are the editable fields of a note.
type noteFlags struct {
	title      string
	kind       string
	content    string
	items      []string
	file       string
	category   string
	color      string
	pinned     bool
	remindDate string
	remindTime string
	noReminder bool
}

func (f *noteFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.title, "title", "t", "", "note title")
	fs.StringVar(&f.kind, "type", string(core.KindText), "note type: text, list, drawing, image or audio")
	fs.StringVarP(&f.content, "content", "c", "", "text content; one item per line for lists")
	fs.StringArrayVarP(&f.items, "item", "i", nil, "list item (repeatable)")
	fs.StringVar(&f.file, "file", "", "media file of an image or audio note")
	fs.StringVar(&f.category, "category", "", "category label")
	fs.StringVar(&f.color, "color", "", "color: blue, yellow, green, red, purple, pink, black or white")
	fs.BoolVar(&f.pinned, "pin", false, "pin the note")
	fs.StringVar(&f.remindDate, "remind-date", "", "reminder date (needs --remind-time)")
	fs.StringVar(&f.remindTime, "remind-time", "", "reminder time of day, HH:MM")
	fs.BoolVar(&f.noReminder, "no-reminder", false, "clear the reminder")
}

// apply copies the flags the user set onto n. Content is rebuilt when the
// type or any content flag changed.
func (f *noteFlags) apply(flags *pflag.FlagSet, n *core.Note) error {
	if flags.Changed("title") {
		n.Title = f.title
	}
	if flags.Changed("category") {
		n.Category = strings.TrimSpace(f.category)
	}
	if flags.Changed("color") {
		n.Color = core.Color(strings.ToLower(f.color))
	}
	if flags.Changed("pin") {
		n.Pinned = f.pinned
	}

	if flags.Changed("type") || flags.Changed("content") || flags.Changed("item") || flags.Changed("file") {
		kind := n.Kind()
		if flags.Changed("type") {
			kind = core.Kind(strings.ToLower(f.kind))
		}
		content, err := f.buildContent(kind)
		if err != nil {
			return err
		}
		n.Content = content
	}

	switch {
	case f.noReminder:
		n.Reminder = nil
	case flags.Changed("remind-date") || flags.Changed("remind-time"):
		reminder, err := core.ParseReminder(f.remindDate, f.remindTime, nil)
		if err != nil {
			return err
		}
		n.Reminder = reminder
	}
	return nil
}

func (f *noteFlags) buildContent(kind core.Kind) (core.Content, error) {
	switch kind {
	case core.KindImage, core.KindAudio:
		if f.file == "" {
			return nil, fmt.Errorf("%w: %s notes need --file", core.ErrValidation, kind)
		}
		data, err := os.ReadFile(f.file)
		if err != nil {
			return nil, fmt.Errorf("read media: %w", err)
		}
		blob := core.Blob{MediaType: http.DetectContentType(data), Data: data}
		if kind == core.KindImage {
			return core.ImageContent{Blob: blob}, nil
		}
		return core.AudioContent{Blob: blob}, nil
	case core.KindList:
		if len(f.items) > 0 {
			return core.ListFromLines(strings.Join(f.items, "\n")), nil
		}
	}
	return core.NewContent(kind, f.content)
}

func newCmdAdd(a *app) *cobra.Command {
	f := &noteFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Long: heredoc.Doc(`
			Create a note in the local store. When a note sink is configured the
			note is written there first and keeps the remote id it is given.
		`),
		Example: heredoc.Doc(`
			notenest add -t Groceries --type list -i milk -i eggs --category Home
			notenest add -t Standup -c "demo the sink" --remind-date 2026-11-02 --remind-time 08:30
			notenest add -t "Whiteboard" --type image --file board.png --offline
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := core.Note{}
			if err := f.apply(cmd.Flags(), &n); err != nil {
				return err
			}
			if n.Content == nil {
				content, err := f.buildContent(core.KindText)
				if err != nil {
					return err
				}
				n.Content = content
			}

			ctx, cancel := commandContext(cmd)
			defer cancel()
			svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			saved, err := svc.Save(ctx, n)
			var offline *core.OfflineError
			switch {
			case errors.As(err, &offline):
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: sink unreachable, note kept offline (%v). Run \"notenest push\" later.\n", offline.Err)
			case err != nil:
				return fmt.Errorf("save note: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created note %d\n", saved.ID)
			if saved.RemoteID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Remote id: %s\n", saved.RemoteID)
			}
			return nil
		},
	}
	f.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newCmdEdit(a *app) *cobra.Command {
	f := &noteFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update a note",
		Long: heredoc.Doc(`
			Update the fields given as flags. The note keeps its ids and creation
			time; edits are never sent to the sink.
		`),
		Example: heredoc.Doc(`
			notenest edit 1760692530123 --pin --color yellow
			notenest edit 1760692530123 --type list -i milk -i bread
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

			n, err := svc.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("note %d: %w", id, err)
			}
			if err := f.apply(cmd.Flags(), &n); err != nil {
				return err
			}
			if _, err := svc.Save(ctx, n); err != nil {
				return fmt.Errorf("save note: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated note %d\n", id)
			return nil
		},
	}
	f.register(cmd.Flags())
	return cmd
}
