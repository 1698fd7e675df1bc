package decomposer

import (
	"github.com/erraggy/oasplit/parser"
	"go.yaml.in/yaml/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// synthesizeTags returns a tags sequence with one entry per resource.
func synthesizeTags(resources []string) *yaml.Node {
	title := cases.Title(language.English)
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, resource := range resources {
		tag := parser.MappingNode()
		parser.SetKey(tag, "name", parser.StringNode(title.String(resource)))
		parser.SetKey(tag, "description", parser.StringNode("Operations related to "+resource))
		seq.Content = append(seq.Content, tag)
	}
	return seq
}
