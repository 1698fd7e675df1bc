package mcpserver

import (
	"context"

	"github.com/erraggy/oasplit/reconciler"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type reconcileInput struct {
	Root           string `json:"root"                      jsonschema:"Path to the decomposed root document"`
	AllowDuplicate *bool  `json:"allow_duplicate,omitempty" jsonschema:"Copy a sibling fragment into a missing path fragment when no fragment holds its content"`
	DryRun         bool   `json:"dry_run,omitempty"         jsonschema:"Report repairs without writing them"`
	All            bool   `json:"all,omitempty"             jsonschema:"Return every check, including valid references"`
	Offset         int    `json:"offset,omitempty"          jsonschema:"Skip the first N checks (for pagination)"`
	Limit          int    `json:"limit,omitempty"           jsonschema:"Maximum number of checks to return (default 100)"`
}

type checkOutput struct {
	Kind        string `json:"kind"`
	Subject     string `json:"subject"`
	Ref         string `json:"ref"`
	State       string `json:"state"`
	NewRef      string `json:"new_ref,omitempty"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
}

type reconcileOutput struct {
	RootPath    string        `json:"root_path"`
	Valid       int           `json:"valid"`
	Repaired    int           `json:"repaired"`
	Duplicated  int           `json:"duplicated"`
	Irreparable int           `json:"irreparable"`
	External    int           `json:"external"`
	RootChanged bool          `json:"root_changed"`
	Written     []string      `json:"written,omitempty"`
	Returned    int           `json:"returned"`
	Checks      []checkOutput `json:"checks,omitempty"`
	Issues      []issueOutput `json:"issues,omitempty"`
	DryRun      bool          `json:"dry_run,omitempty"`
}

func handleReconcile(ctx context.Context, _ *mcp.CallToolRequest, input reconcileInput) (*mcp.CallToolResult, reconcileOutput, error) {
	allowDuplicate := pipelineDefaults().AllowDuplicate
	if input.AllowDuplicate != nil {
		allowDuplicate = *input.AllowDuplicate
	}

	result, err := reconciler.ReconcileWithOptions(ctx,
		reconciler.WithRootPath(input.Root),
		reconciler.WithAllowDuplicate(allowDuplicate),
		reconciler.WithDryRun(input.DryRun),
	)
	// irreparable references come back with a result and are reported in
	// the output rather than as a tool error
	if result == nil {
		return errResult(err), reconcileOutput{}, nil
	}

	output := reconcileOutput{
		RootPath:    result.RootPath,
		Valid:       result.Count(reconciler.StateValid),
		Repaired:    result.Count(reconciler.StateRepaired),
		Duplicated:  result.Count(reconciler.StateDuplicated),
		Irreparable: result.Count(reconciler.StateIrreparable),
		External:    result.Count(reconciler.StateExternal),
		RootChanged: result.RootChanged,
		Written:     result.Written,
		Issues:      toIssueOutputs(result.Issues),
		DryRun:      result.DryRun,
	}

	checks := makeSlice[checkOutput](len(result.Checks))
	for _, c := range result.Checks {
		if c.State == reconciler.StateValid && !input.All {
			continue
		}
		checks = append(checks, checkOutput{
			Kind:        string(c.Kind),
			Subject:     c.Subject,
			Ref:         c.Ref,
			State:       string(c.State),
			NewRef:      c.NewRef,
			Source:      c.Source,
			Description: c.Description,
		})
	}
	output.Checks = paginate(checks, input.Offset, input.Limit)
	output.Returned = len(output.Checks)

	return nil, output, nil
}
