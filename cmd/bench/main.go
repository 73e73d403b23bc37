package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/notenest"
	"github.com/aretw0/notenest/pkg/core"
)

func main() {
	count := flag.Int("count", 1000, "Number of notes to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark stores after running")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()

	for _, adapter := range []string{notenest.AdapterFS, notenest.AdapterSQLite} {
		dir, err := os.MkdirTemp("", "notenest_bench_")
		if err != nil {
			panic(err)
		}
		if err := bench(ctx, adapter, dir, *count, logger); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", adapter, err)
		}
		if *keep {
			fmt.Printf("Keeping bench dir: %s\n", dir)
		} else {
			_ = os.RemoveAll(dir)
		}
	}
}

func bench(ctx context.Context, adapter, dir string, count int, logger *slog.Logger) error {
	open := func() (*core.Service, error) {
		return notenest.Open(ctx, dir, notenest.WithAdapter(adapter), notenest.WithLogger(logger))
	}

	svc, err := open()
	if err != nil {
		return err
	}
	fmt.Printf("[%s] Saving %d notes in %s...\n", adapter, count, dir)
	start := time.Now()
	for i := 0; i < count; i++ {
		n := core.Note{
			Title:    fmt.Sprintf("Note %d", i),
			Content:  core.TextContent{Text: "This is a benchmark note."},
			Category: []string{"Work", "Home", ""}[i%3],
		}
		if _, err := svc.Save(ctx, n); err != nil {
			_ = svc.Close()
			return err
		}
	}
	save := time.Since(start)
	if err := svc.Close(); err != nil {
		return err
	}

	// Reopen so the first listing starts from the persisted index.
	svc, err = open()
	if err != nil {
		return err
	}
	defer svc.Close()

	cold, n, err := timeList(ctx, svc)
	if err != nil {
		return err
	}
	warm, _, err := timeList(ctx, svc)
	if err != nil {
		return err
	}

	start = time.Now()
	view, err := svc.Query(ctx, core.Query{Category: "Work", Search: "note 9"})
	if err != nil {
		return err
	}
	query := time.Since(start)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result [%s] (%d notes):\n", adapter, n)
	fmt.Printf("  Save:  %v (%v/note)\n", save, save/time.Duration(max(count, 1)))
	fmt.Printf("  Cold:  %v\n", cold)
	fmt.Printf("  Warm:  %v\n", warm)
	fmt.Printf("  Query: %v (Items: %d)\n", query, len(view.Notes))
	fmt.Printf("--------------------------------------------------\n")
	return nil
}

func timeList(ctx context.Context, svc *core.Service) (time.Duration, int, error) {
	start := time.Now()
	notes, err := svc.List(ctx)
	return time.Since(start), len(notes), err
}
