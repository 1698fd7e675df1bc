package mcpserver

import (
	"context"

	"github.com/erraggy/oasplit/classifier"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type classifyInput struct {
	Spec     specInput `json:"spec"                jsonschema:"The OAS 3.x document whose schemas to classify"`
	Rules    []string  `json:"rules,omitempty"     jsonschema:"Classification rules as category=pattern, tried in order. Replaces the configured table."`
	CatchAll string    `json:"catch_all,omitempty" jsonschema:"Category for schemas no rule matches"`
}

type classifyGroup struct {
	Category string   `json:"category"`
	Schemas  []string `json:"schemas"`
}

type classifyOutput struct {
	SchemaCount int             `json:"schema_count"`
	Rules       []string        `json:"rules"`
	CatchAll    string          `json:"catch_all"`
	Categories  []classifyGroup `json:"categories,omitempty"`
	Fallbacks   []string        `json:"fallbacks,omitempty"`
}

func handleClassify(_ context.Context, _ *mcp.CallToolRequest, input classifyInput) (*mcp.CallToolResult, classifyOutput, error) {
	defaults := pipelineDefaults()
	rules, catchAll := defaults.Rules, defaults.CatchAll
	if len(input.Rules) > 0 {
		rules = make(classifier.RuleTable, 0, len(input.Rules))
		for _, s := range input.Rules {
			rule, err := classifier.ParseRule(s)
			if err != nil {
				return errResult(err), classifyOutput{}, nil
			}
			rules = append(rules, rule)
		}
	}
	if input.CatchAll != "" {
		catchAll = input.CatchAll
	}
	c, err := classifier.New(rules, catchAll)
	if err != nil {
		return errResult(err), classifyOutput{}, nil
	}

	parsed, err := input.Spec.resolve()
	if err != nil {
		return errResult(err), classifyOutput{}, nil
	}
	schemas, err := parsed.Schemas()
	if err != nil {
		return errResult(err), classifyOutput{}, nil
	}
	// ClassifyAll sets Category on the slice it is given, not on the cached tree
	groups := c.ClassifyAll(schemas)

	output := classifyOutput{
		SchemaCount: len(schemas),
		CatchAll:    c.CatchAll(),
		Fallbacks:   c.Fallbacks(),
	}
	for _, r := range c.Rules() {
		output.Rules = append(output.Rules, r.String())
	}
	output.Categories = makeSlice[classifyGroup](len(groups))
	for _, g := range groups {
		names := make([]string, 0, len(g.Schemas))
		for _, s := range g.Schemas {
			names = append(names, s.Name)
		}
		output.Categories = append(output.Categories, classifyGroup{Category: g.Category, Schemas: names})
	}
	return nil, output, nil
}
