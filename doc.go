// Package notenest is the composition root of NoteNest, a local-first note
// store that can write new notes through to a remote note sink.
//
// It connects the core domain (pkg/core) with the storage adapters
// (pkg/adapters/fs, sqlite, memory) and the sink client (pkg/remote) using
// functional options.
//
// Features:
//
//   - Local store: one table of note records keyed by a numeric id, kept as
//     JSON or YAML files, in SQLite, or in memory.
//   - Reconciliation: a note owns one local id and at most one remote id;
//     repeated saves upsert, never duplicate.
//   - Query: category vocabulary and case-insensitive title/text search.
//   - Remote sink: the first save of a new note is posted to the sink, which
//     assigns the remote id.
//
// Usage:
//
//	svc, err := notenest.Open(ctx, "./notes",
//		notenest.WithRemoteEndpoint("http://localhost:8080/notes"),
//		notenest.WithOffline(true),
//	)
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	n, err := svc.Save(ctx, core.Note{Title: "Groceries", Category: "Home"})
package notenest
