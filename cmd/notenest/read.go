package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/aretw0/notenest/pkg/core"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Strikethrough,
		extension.TaskList,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

func newCmdList(a *app) *cobra.Command {
	var (
		q      core.Query
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Example: heredoc.Doc(`
			notenest list
			notenest list --category Work --search standup
			notenest list --json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			view, err := svc.Query(ctx, q)
			if err != nil {
				return fmt.Errorf("list notes: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return encodeJSON(out, view.Notes)
			}
			if len(view.Notes) == 0 {
				fmt.Fprintln(out, "No notes.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tTYPE\tCATEGORY\tREMOTE")
			for _, n := range view.Notes {
				title := n.Title
				if n.Pinned {
					title = "* " + title
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", n.ID, title, n.Kind(), orDash(n.Category), orDash(n.RemoteID))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&q.Category, "category", "", `only notes in this category ("All" for every note)`)
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "case-insensitive search in title and text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func newCmdShow(a *app) *cobra.Command {
	var asJSON, asHTML bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
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

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				return encodeJSON(out, n)
			case asHTML:
				return markdownEngine.Convert([]byte(noteMarkdown(n)), out)
			}
			printNote(out, n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Render the note as HTML")
	return cmd
}

func newCmdCategories(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the category vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			svc, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			view, err := svc.Query(ctx, core.Query{})
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			for _, c := range view.Categories {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func printNote(w io.Writer, n core.Note) {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "id:\t%d\n", n.ID)
	fmt.Fprintf(tw, "remote id:\t%s\n", orDash(n.RemoteID))
	fmt.Fprintf(tw, "title:\t%s\n", n.Title)
	fmt.Fprintf(tw, "type:\t%s\n", n.Kind())
	fmt.Fprintf(tw, "category:\t%s\n", orDash(n.Category))
	fmt.Fprintf(tw, "color:\t%s\n", n.Color)
	fmt.Fprintf(tw, "pinned:\t%t\n", n.Pinned)
	if n.Reminder != nil {
		fmt.Fprintf(tw, "reminder:\t%s\n", n.Reminder.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(tw, "created:\t%s\n", n.CreatedAt.Local().Format(time.RFC1123))
	fmt.Fprintf(tw, "updated:\t%s\n", n.UpdatedAt.Local().Format(time.RFC1123))
	_ = tw.Flush()

	if body := contentText(n); body != "" {
		fmt.Fprintf(w, "\n%s\n", body)
	}
}

func contentText(n core.Note) string {
	switch c := n.Content.(type) {
	case core.TextContent:
		return c.Text
	case core.ListContent:
		lines := make([]string, len(c.Items))
		for i, item := range c.Items {
			lines[i] = "- " + item
		}
		return strings.Join(lines, "\n")
	case core.ImageContent:
		return fmt.Sprintf("[%s, %d bytes]", c.Blob.MediaType, len(c.Blob.Data))
	case core.AudioContent:
		return fmt.Sprintf("[%s, %d bytes]", c.Blob.MediaType, len(c.Blob.Data))
	case core.DrawingContent:
		return fmt.Sprintf("[drawing, %d bytes]", len(c.Data))
	}
	return ""
}

// noteMarkdown renders a note as a markdown document: the title as a
// heading, text verbatim and lists as task items.
func noteMarkdown(n core.Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", n.Title)
	switch c := n.Content.(type) {
	case core.TextContent:
		b.WriteString(c.Text)
		b.WriteString("\n")
	case core.ListContent:
		for _, item := range c.Items {
			fmt.Fprintf(&b, "- [ ] %s\n", item)
		}
	default:
		fmt.Fprintf(&b, "_%s_\n", contentText(n))
	}
	return b.String()
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
