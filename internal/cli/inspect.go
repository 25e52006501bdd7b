package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ripple/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database   string
	Collection string
}

// CollectionSummary describes one collection in the store.
type CollectionSummary struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}

// DocumentSummary describes one stored document.
type DocumentSummary struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	Data    any    `json:"data"`
}

// InspectResult holds the inspect output. Collections is set for a
// whole-store listing, Documents for a single collection.
type InspectResult struct {
	Collections []CollectionSummary `json:"collections,omitempty"`
	Collection  string              `json:"collection,omitempty"`
	Documents   []DocumentSummary   `json:"documents,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect stored documents",
		Long: `Inspect the documents table of a store.

Without --collection, lists every collection with its document
count. With --collection, lists the documents in that collection
with their versions and snapshots.

Examples:
  ripple inspect --db ./ripple.db
  ripple inspect --db ./ripple.db --collection users
  ripple inspect --db ./ripple.db --collection users --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "list documents of one collection")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Collection != "" {
		return inspectCollection(ctx, st, opts, cmd)
	}
	return inspectStore(ctx, st, opts, cmd)
}

func inspectStore(ctx context.Context, st *store.Store, opts *InspectOptions, cmd *cobra.Command) error {
	collections, err := st.Collections(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list collections", err)
	}

	result := InspectResult{Collections: make([]CollectionSummary, 0, len(collections))}
	for _, name := range collections {
		docs, err := st.CollectionDocs(ctx, name)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read collection %s", name), err)
		}
		result.Collections = append(result.Collections, CollectionSummary{
			Name:      name,
			Documents: len(docs),
		})
	}

	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	if len(result.Collections) == 0 {
		fmt.Fprintln(w, "No collections.")
		return nil
	}
	for _, c := range result.Collections {
		fmt.Fprintf(w, "%s  %d document(s)\n", c.Name, c.Documents)
	}
	return nil
}

func inspectCollection(ctx context.Context, st *store.Store, opts *InspectOptions, cmd *cobra.Command) error {
	docs, err := st.CollectionDocs(ctx, opts.Collection)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read collection %s", opts.Collection), err)
	}

	result := InspectResult{
		Collection: opts.Collection,
		Documents:  make([]DocumentSummary, 0, len(docs)),
	}
	for _, doc := range docs {
		result.Documents = append(result.Documents, DocumentSummary{
			ID:      doc.ID,
			Version: doc.Version,
			Data:    doc.Data,
		})
	}

	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Collection: %s\n", result.Collection)
	fmt.Fprintln(w)
	if len(result.Documents) == 0 {
		fmt.Fprintln(w, "  (no documents)")
		return nil
	}
	for _, doc := range result.Documents {
		snapshot, err := json.Marshal(doc.Data)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to render document %s", doc.ID), err)
		}
		fmt.Fprintf(w, "  %s  v%d  %s\n", doc.ID, doc.Version, snapshot)
	}
	return nil
}
