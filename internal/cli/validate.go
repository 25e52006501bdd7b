package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/ripple/internal/policy"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// PolicySummary describes one compiled collection policy.
type PolicySummary struct {
	Collection  string `json:"collection"`
	UnloadDelay string `json:"unload_delay,omitempty"`
	FetchOnly   bool   `json:"fetch_only,omitempty"`
	Local       bool   `json:"local,omitempty"`
}

// ValidateResult holds the validate output.
type ValidateResult struct {
	File     string          `json:"file"`
	Policies []PolicySummary `json:"policies"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <policy-file>",
		Short: "Validate a retention policy file",
		Long: `Compile a CUE retention policy file and report what it declares.

Policies set per-collection unload delays and mark collections
fetch-only or local-only. A file that fails to compile exits with
code 1 and a positioned error.

Examples:
  ripple validate ./policies.cue
  ripple validate ./policies.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, file string, cmd *cobra.Command) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read policy file", err)
	}

	set, err := policy.LoadPolicies(data, file)
	if err != nil {
		if opts.Format == "json" {
			if werr := writeJSON(cmd, CLIResponse{
				Status: "error",
				Error: &CLIError{
					Code:    "E_POLICY_INVALID",
					Message: err.Error(),
				},
			}); werr != nil {
				return werr
			}
			return NewExitError(ExitFailure, "policy file is invalid")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", file)
		fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", err)
		return NewExitError(ExitFailure, "policy file is invalid")
	}

	result := ValidateResult{
		File:     file,
		Policies: make([]PolicySummary, 0, len(set)),
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := set[name]
		summary := PolicySummary{
			Collection: name,
			FetchOnly:  p.FetchOnly,
			Local:      p.Local,
		}
		if p.UnloadDelaySet {
			summary.UnloadDelay = p.UnloadDelay.String()
		}
		result.Policies = append(result.Policies, summary)
	}

	if opts.Format == "json" {
		return writeJSON(cmd, CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %s: %d collection policy(ies)\n", file, len(result.Policies))
	for _, p := range result.Policies {
		line := "  " + p.Collection
		if p.UnloadDelay != "" {
			line += fmt.Sprintf("  unloadDelay=%s", p.UnloadDelay)
		}
		if p.FetchOnly {
			line += "  fetchOnly"
		}
		if p.Local {
			line += "  local"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
