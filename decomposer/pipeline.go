package decomposer

import (
	"fmt"

	"github.com/erraggy/oasplit/classifier"
	"github.com/erraggy/oasplit/fragment"
	"github.com/erraggy/oasplit/internal/issues"
	"github.com/erraggy/oasplit/internal/severity"
	"github.com/erraggy/oasplit/parser"
	"github.com/erraggy/oasplit/pathsplit"
	"github.com/erraggy/oasplit/rewriter"
	"go.yaml.in/yaml/v4"
)

// pipeline carries state between the stages of one run.
type pipeline struct {
	*Decomposer
	res      *parser.ParseResult
	result   *DecomposeResult
	rootName string

	schemas    []parser.SchemaEntity
	paths      []parser.PathEntity
	components []parser.ComponentEntity
	groups     []classifier.Group
	routes     *pathsplit.Plan
	plan       *rewriter.Plan
	root       *yaml.Node
}

func (p *pipeline) ext() string {
	if p.Ext == "" {
		return fragment.DefaultExt
	}
	return p.Ext
}

// styled converts JSON flow collections to block style. body must be a copy.
func (p *pipeline) styled(body *yaml.Node) *yaml.Node {
	if p.res.SourceFormat == parser.SourceFormatJSON {
		parser.BlockStyle(body)
	}
	return body
}

func (p *pipeline) extract() error {
	var err error
	p.schemas, err = p.res.Schemas()
	if err != nil {
		if !isMiss(err) {
			return err
		}
		p.result.Issues.Add("extract", severity.SeverityInfo, "components.schemas", "%v; no schemas extracted", err)
	}

	p.paths, err = p.res.Paths()
	if err != nil {
		if !isMiss(err) {
			return err
		}
		p.result.Issues.Add("extract", severity.SeverityInfo, "paths", "%v; no paths extracted", err)
	}

	if !p.ExtractComponents {
		return nil
	}
	p.result.Components = make(map[string]int)
	for _, kind := range ExtractedKinds {
		entities, err := p.res.Components(kind)
		if err != nil {
			if !isMiss(err) {
				return err
			}
			p.result.Issues.Add("extract", severity.SeverityInfo, "components."+kind, "%v", err)
			continue
		}
		if bad := firstInvalidName(entities); bad != "" {
			p.result.Issues.Add("extract", severity.SeverityWarning, "components."+kind,
				"component %q is not a valid file name; %s kept inline", bad, kind)
			continue
		}
		p.components = append(p.components, entities...)
		p.result.Components[kind] = len(entities)
	}
	p.log().Debug("sections extracted",
		"schemas", len(p.schemas),
		"paths", len(p.paths),
		"components", len(p.components),
	)
	return nil
}

func firstInvalidName(entities []parser.ComponentEntity) string {
	for _, e := range entities {
		if !fragment.ValidFileName(e.Name) {
			return e.Name
		}
	}
	return ""
}

func (p *pipeline) classify() error {
	rules := p.Rules
	if rules == nil {
		rules = classifier.DefaultRules()
	}
	catchAll := p.CatchAll
	if catchAll == "" {
		catchAll = classifier.DefaultCatchAll
	}
	c, err := classifier.New(rules, catchAll)
	if err != nil {
		return err
	}
	c.SetLogger(p.log())

	p.groups = c.ClassifyAll(p.schemas)
	p.result.Fallbacks = c.Fallbacks()
	if n := len(p.result.Fallbacks); n > 0 {
		p.result.Issues.Add("classify", severity.SeverityInfo, "components.schemas",
			"%d schema(s) matched no rule and were filed under %q", n, catchAll)
	}
	return nil
}

func (p *pipeline) split() error {
	prefix := p.Prefix
	if prefix == "" {
		prefix = pathsplit.DefaultPrefix
	}
	s, err := pathsplit.New(prefix)
	if err != nil {
		return err
	}
	p.routes, err = s.SplitAll(p.paths)
	if err != nil {
		return err
	}
	for _, pe := range p.routes.Inline {
		p.result.InlinePaths = append(p.result.InlinePaths, pe.Template)
		p.result.Issues = append(p.result.Issues, issues.Issue{
			Stage:    "split",
			Path:     pe.Template,
			Message:  fmt.Sprintf("not below prefix %q as /<resource>[/<segment>...]; kept inline in the root", prefix),
			Severity: severity.SeverityWarning,
			Line:     pe.Line,
		})
	}
	return nil
}

func (p *pipeline) build() error {
	p.plan = &rewriter.Plan{
		Ext:        p.ext(),
		Paths:      p.routes.Routed,
		Inline:     p.routes.Inline,
		Components: p.components,
	}
	for _, g := range p.groups {
		p.plan.Schemas = append(p.plan.Schemas, g.Schemas...)
	}

	if p.SynthesizeTags {
		_, err := p.res.Section(parser.SectionTags)
		if resources := p.routes.Resources(); isMiss(err) && len(resources) > 0 {
			p.plan.Tags = synthesizeTags(resources)
			p.result.TagsSynthesized = true
			p.result.Issues.Add("build", severity.SeverityInfo, "tags", "synthesized %d tag(s) from path resources", len(resources))
		}
	}

	root, err := rewriter.Build(p.res.Root, p.plan)
	if err != nil {
		return err
	}
	p.root = p.styled(root)
	return nil
}

func (p *pipeline) write() error {
	w, err := fragment.New(fragment.Config{
		Dir:    p.result.OutputDir,
		Ext:    p.ext(),
		DryRun: p.DryRun,
		Logger: p.log(),
	})
	if err != nil {
		return err
	}
	ix := rewriter.NewIndex(p.plan, p.rootName)
	relocated := 0

	for _, g := range p.groups {
		file := fragment.SchemaFile(g.Category, w.Ext())
		moved := make([]parser.SchemaEntity, len(g.Schemas))
		summary := CategorySummary{Category: g.Category, File: file}
		for i, s := range g.Schemas {
			body, n := ix.Relocate(s.Body, file)
			relocated += n
			s.Body = p.styled(body)
			moved[i] = s
			summary.Schemas = append(summary.Schemas, s.Name)
		}
		if _, err := w.WriteSchemas(g.Category, moved); err != nil {
			return err
		}
		p.result.Categories = append(p.result.Categories, summary)
	}

	for _, pe := range p.routes.Routed {
		route := pathsplit.Route{Template: pe.Template, Resource: pe.Resource, Action: pe.Action}
		body, n := ix.Relocate(pe.Body, fragment.PathFile(route, w.Ext()))
		relocated += n
		file, err := w.WritePath(route, p.styled(body))
		if err != nil {
			return err
		}
		p.result.Routes = append(p.result.Routes, RouteSummary{
			Template: pe.Template,
			Resource: pe.Resource,
			Action:   pe.Action,
			File:     file,
		})
	}

	for _, c := range p.components {
		body, n := ix.Relocate(c.Body, fragment.ComponentFile(c.Kind, c.Name, w.Ext()))
		relocated += n
		if _, err := w.WriteComponent(c.Kind, c.Name, p.styled(body)); err != nil {
			return err
		}
	}

	encoded, err := parser.Encode(p.root)
	if err != nil {
		return err
	}
	p.result.Root = encoded
	if err := w.WriteDocument(p.rootName, p.root); err != nil {
		return err
	}

	p.result.Files = w.Written()
	p.result.Changed = w.Changed()
	p.log().Debug("fragments written",
		"files", len(p.result.Files),
		"changed", len(p.result.Changed),
		"relocatedRefs", relocated,
	)
	return nil
}
