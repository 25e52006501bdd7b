package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ripple/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	Collection string
	ID         string
	Limit      int
}

// OpEvent is one journal entry in the trace output.
type OpEvent struct {
	Seq        int64  `json:"seq"`
	Collection string `json:"collection"`
	DocID      string `json:"doc_id"`
	Kind       string `json:"kind"`
	Path       string `json:"path,omitempty"`
	Value      any    `json:"value,omitempty"`
	Values     []any  `json:"values,omitempty"`
	Index      int    `json:"index,omitempty"`
	From       int    `json:"from,omitempty"`
	To         int    `json:"to,omitempty"`
	HowMany    int    `json:"how_many,omitempty"`
	Source     string `json:"source,omitempty"`
}

// TraceResult holds the journal trace output.
type TraceResult struct {
	Collection string    `json:"collection,omitempty"`
	ID         string    `json:"id,omitempty"`
	Ops        []OpEvent `json:"ops"`
	Total      int       `json:"total"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Dump the operation journal",
		Long: `Dump the append-only operation journal of a store.

The journal records every applied operation in order, with the
connection that originated it. Scope the dump to one collection or
one document with --collection and --id.

Examples:
  ripple trace --db ./ripple.db
  ripple trace --db ./ripple.db --collection users
  ripple trace --db ./ripple.db --collection users --id ada
  ripple trace --db ./ripple.db --collection users --id ada --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "limit to one collection")
	cmd.Flags().StringVar(&opts.ID, "id", "", "limit to one document (requires --collection)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries to show (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.ID != "" && opts.Collection == "" {
		return NewExitError(ExitCommandError, "--id requires --collection")
	}

	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	entries, err := st.ReadOps(ctx, opts.Collection, opts.ID, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		Collection: opts.Collection,
		ID:         opts.ID,
		Ops:        make([]OpEvent, 0, len(entries)),
		Total:      len(entries),
	}
	for _, entry := range entries {
		result.Ops = append(result.Ops, OpEvent{
			Seq:        entry.Seq,
			Collection: entry.Collection,
			DocID:      entry.DocID,
			Kind:       string(entry.Op.Kind),
			Path:       entry.Op.Path,
			Value:      entry.Op.Value,
			Values:     entry.Op.Values,
			Index:      entry.Op.Index,
			From:       entry.Op.From,
			To:         entry.Op.To,
			HowMany:    entry.Op.HowMany,
			Source:     entry.Op.Source,
		})
	}

	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: result})
	}

	return outputTraceText(cmd, result, opts.Verbose)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	switch {
	case result.ID != "":
		fmt.Fprintf(w, "Journal for %s.%s\n", result.Collection, result.ID)
	case result.Collection != "":
		fmt.Fprintf(w, "Journal for collection %s\n", result.Collection)
	default:
		fmt.Fprintln(w, "Journal")
	}
	fmt.Fprintln(w)

	if len(result.Ops) == 0 {
		fmt.Fprintln(w, "  (no operations)")
		return nil
	}

	for _, op := range result.Ops {
		target := op.Collection + "." + op.DocID
		field := op.Path
		if field == "" {
			field = "(document)"
		}
		fmt.Fprintf(w, "  [%d] %s %s %s\n", op.Seq, strings.ToUpper(op.Kind), target, field)

		if !verbose {
			continue
		}
		if op.Value != nil {
			fmt.Fprintf(w, "       Value: %s\n", formatValue(op.Value))
		}
		if op.Values != nil {
			fmt.Fprintf(w, "       Values: %s\n", formatValue(op.Values))
		}
		switch op.Kind {
		case "insert":
			fmt.Fprintf(w, "       Index: %d\n", op.Index)
		case "remove":
			fmt.Fprintf(w, "       Index: %d HowMany: %d\n", op.Index, op.HowMany)
		case "move":
			fmt.Fprintf(w, "       From: %d To: %d HowMany: %d\n", op.From, op.To, op.HowMany)
		}
		if op.Source != "" {
			fmt.Fprintf(w, "       Source: %s\n", op.Source)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total: %d operation(s)\n", result.Total)
	return nil
}

// formatValue formats a value for display, handling nested structures
// deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatMap(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatMap formats a map with sorted keys so output is deterministic.
func formatMap(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(m[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
