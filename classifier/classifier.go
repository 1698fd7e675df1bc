// Package classifier assigns named schemas to categories using an ordered
// rule table.
//
// Each rule pairs a category with a regular expression that is searched for
// anywhere in the schema name. The first matching rule wins; names that match
// no rule fall back to the catch-all category and are counted.
//
//	c, err := classifier.New(classifier.DefaultRules(), classifier.DefaultCatchAll)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c.Classify("CastHash")     // "cast"
//	c.Classify("WidgetConfig") // "misc"
package classifier

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/erraggy/oasplit/oaserrors"
	"github.com/erraggy/oasplit/parser"
)

// DefaultCatchAll is the category for names no rule matches.
const DefaultCatchAll = "misc"

// Rule maps schema names matching Pattern to Category.
type Rule struct {
	Category string `json:"category" yaml:"category" toml:"category"`
	Pattern  string `json:"pattern" yaml:"pattern" toml:"pattern"`
}

// RuleTable is an ordered list of rules. Order is precedence.
type RuleTable []Rule

// DefaultRules returns the built-in rule table for the Farcaster hub API.
func DefaultRules() RuleTable {
	return RuleTable{
		{"user", "User|Fid|Verification"},
		{"cast", "Cast|Reply|Conversation"},
		{"channel", "Channel"},
		{"reaction", "Reaction"},
		{"feed", "Feed"},
		{"frame", "Frame"},
		{"signer", "Signer"},
		{"webhook", "Webhook"},
		{"error", "Error|Conflict|Zod"},
		{"common", "Address|Timestamp|Cursor|UUID|PublicKey"},
		{"ban", "Ban"},
		{"notification", "Notification"},
		{"storage", "Storage|Allocation|Usage"},
		{"subscription", "Subscription|Subscribe"},
		{"action", "Action"},
		{"mute", "Mute"},
		{"follow", "Follow"},
		{"login", "Login|Auth|Nonce"},
		{"onchain", "Onchain|Fungible"},
		{"metric", "Metric"},
		{"agent", "Agent"},
		{"fname", "Fname"},
		{"block", "Block"},
	}
}

// ParseRule parses "category=pattern".
func ParseRule(s string) (Rule, error) {
	category, pattern, ok := strings.Cut(s, "=")
	if !ok || category == "" || pattern == "" {
		return Rule{}, &oaserrors.ConfigError{Option: "rule", Value: s, Message: "expected category=pattern"}
	}
	return Rule{Category: category, Pattern: pattern}, nil
}

// String returns the rule in "category=pattern" form.
func (r Rule) String() string {
	return r.Category + "=" + r.Pattern
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// Classifier applies a compiled rule table.
type Classifier struct {
	rules     []compiledRule
	table     RuleTable
	catchAll  string
	fallbacks []string
	logger    parser.Logger
}

// New compiles rules into a Classifier.
//
// Rules whose category equals catchAll never match. A rule whose pattern
// matches every sample name (see matchesEverything) is only accepted as the
// last rule, where it acts as the catch-all.
func New(rules RuleTable, catchAll string) (*Classifier, error) {
	if catchAll == "" {
		return nil, &oaserrors.ConfigError{Option: "catch-all", Message: "catch-all category cannot be empty"}
	}
	if !validCategory(catchAll) {
		return nil, &oaserrors.ConfigError{Option: "catch-all", Value: catchAll, Message: "category must be a plain file name"}
	}
	c := &Classifier{
		table:    append(RuleTable(nil), rules...),
		catchAll: catchAll,
		logger:   parser.NopLogger{},
	}
	for i, r := range rules {
		if !validCategory(r.Category) {
			return nil, &oaserrors.ConfigError{Option: "rule", Value: r.String(), Message: "category must be a plain file name"}
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, &oaserrors.ConfigError{Option: "rule", Value: r.String(), Message: "invalid pattern", Cause: err}
		}
		if r.Category == catchAll {
			continue
		}
		if matchesEverything(re) && i != len(rules)-1 {
			return nil, &oaserrors.ConfigError{
				Option:  "rule",
				Value:   r.String(),
				Message: fmt.Sprintf("pattern matches every name and would shadow the %d rules after it", len(rules)-1-i),
			}
		}
		c.rules = append(c.rules, compiledRule{Rule: r, re: re})
	}
	return c, nil
}

// everyName samples the shapes a component name ([A-Za-z0-9._-]+) takes in
// practice. A pattern matching all of them shadows every rule after it.
var everyName = []string{"a", "Z", "7", "x.y", "a-b", "_id", "CastHash", "user_v2", "Error404"}

// matchesEverything reports whether re matches every sample name. Patterns
// such as "", ".*", ".+", ".", `\w` and "[A-Za-z0-9]" all do.
func matchesEverything(re *regexp.Regexp) bool {
	for _, name := range everyName {
		if !re.MatchString(name) {
			return false
		}
	}
	return true
}

// SetLogger sets the logger that receives fallback notices.
func (c *Classifier) SetLogger(l parser.Logger) {
	if l == nil {
		l = parser.NopLogger{}
	}
	c.logger = l
}

// CatchAll returns the fallback category.
func (c *Classifier) CatchAll() string { return c.catchAll }

// Rules returns a copy of the rule table in precedence order.
func (c *Classifier) Rules() RuleTable {
	return append(RuleTable(nil), c.table...)
}

// Match returns the category of the first rule matching name. The second
// result is false when the name falls back to the catch-all. Match does not
// count fallbacks.
func (c *Classifier) Match(name string) (string, bool) {
	for _, r := range c.rules {
		if r.re.MatchString(name) {
			return r.Category, true
		}
	}
	return c.catchAll, false
}

// Classify returns the category for name, recording a fallback when no rule
// matches.
func (c *Classifier) Classify(name string) string {
	category, ok := c.Match(name)
	if !ok {
		c.fallbacks = append(c.fallbacks, name)
		c.logger.Debug("schema classified by fallback", "schema", name, "category", category)
	}
	return category
}

// Fallbacks returns the names that fell back to the catch-all, in the
// order they were classified.
func (c *Classifier) Fallbacks() []string {
	return append([]string(nil), c.fallbacks...)
}

// Group is the set of schemas sharing one category.
type Group struct {
	Category string
	Schemas  []parser.SchemaEntity
}

// ClassifyAll sets Category on every schema and groups them by category.
// Groups are sorted by category name; schemas within a group keep their
// source order.
func (c *Classifier) ClassifyAll(schemas []parser.SchemaEntity) []Group {
	byCategory := make(map[string][]parser.SchemaEntity)
	for i := range schemas {
		schemas[i].Category = c.Classify(schemas[i].Name)
		byCategory[schemas[i].Category] = append(byCategory[schemas[i].Category], schemas[i])
	}
	groups := make([]Group, 0, len(byCategory))
	for category, members := range byCategory {
		groups = append(groups, Group{Category: category, Schemas: members})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Category < groups[j].Category })
	return groups
}

func validCategory(category string) bool {
	if category == "" || category == "." || category == ".." {
		return false
	}
	return !strings.ContainsAny(category, `/\`)
}
