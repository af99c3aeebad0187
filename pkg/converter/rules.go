package converter

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/stackvity/chconv/pkg/util"
)

// RuleSeparator splits a rule string into individual patterns.
const RuleSeparator = ";"

type ruleKind int

const (
	ruleRegex ruleKind = iota
	ruleLiteral
)

// Rule is a single user pattern. It is a compiled regular expression when
// the pattern compiles, and a literal substring otherwise.
type Rule struct {
	kind    ruleKind
	re      *regexp.Regexp
	literal string
}

// NewRule compiles pattern, falling back to a literal rule on a syntax error.
func NewRule(pattern string) Rule {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{kind: ruleLiteral, literal: pattern}
	}
	return Rule{kind: ruleRegex, re: re, literal: pattern}
}

// IsLiteral reports whether the pattern failed to compile as a regex.
func (r Rule) IsLiteral() bool { return r.kind == ruleLiteral }

// String returns the original pattern text.
func (r Rule) String() string { return r.literal }

// Matches applies the rule to a single candidate string. Regex rules search
// anywhere in the candidate; anchor with ^ and $ for whole-string matches.
func (r Rule) Matches(candidate string) bool {
	if r.kind == ruleRegex {
		return r.re.MatchString(candidate)
	}
	return strings.Contains(candidate, r.literal)
}

// RuleSet is an ordered list of rules that matches if any rule matches.
// A nil *RuleSet means no rules were given.
type RuleSet struct {
	raw   string
	rules []Rule
}

// ParseRuleSet splits raw on ';', drops empty tokens and compiles the rest.
// It returns nil when no non-empty token remains.
func ParseRuleSet(raw string) *RuleSet {
	var rules []Rule
	for _, token := range strings.Split(raw, RuleSeparator) {
		if token == "" {
			continue
		}
		rules = append(rules, NewRule(token))
	}
	if len(rules) == 0 {
		return nil
	}
	return &RuleSet{raw: raw, rules: rules}
}

// Rules returns the parsed rules in order.
func (s *RuleSet) Rules() []Rule {
	if s == nil {
		return nil
	}
	return s.rules
}

// String returns the rule string the set was parsed from.
func (s *RuleSet) String() string {
	if s == nil {
		return ""
	}
	return s.raw
}

// MatchExclude returns the first rule matching relPath, its file name, its
// extension with or without the leading dot, or any one of its segments.
func (s *RuleSet) MatchExclude(relPath string) (Rule, bool) {
	if s == nil {
		return Rule{}, false
	}
	candidates := excludeCandidates(relPath)
	for _, rule := range s.rules {
		for _, c := range candidates {
			if rule.Matches(c) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}

// Excludes reports whether relPath is excluded. A nil set excludes nothing.
func (s *RuleSet) Excludes(relPath string) bool {
	_, ok := s.MatchExclude(relPath)
	return ok
}

// MatchSuffix returns the first rule matching the extension of path, with
// or without its leading dot. A path without an extension never matches.
func (s *RuleSet) MatchSuffix(path string) (Rule, bool) {
	if s == nil {
		return Rule{}, false
	}
	ext := util.Extension(path)
	if ext == "" {
		return Rule{}, false
	}
	bare := strings.TrimPrefix(ext, ".")
	for _, rule := range s.rules {
		if rule.Matches(ext) || (bare != "" && rule.Matches(bare)) {
			return rule, true
		}
	}
	return Rule{}, false
}

// IncludesSuffix reports whether path passes the suffix filter. A nil set
// includes everything.
func (s *RuleSet) IncludesSuffix(path string) bool {
	if s == nil {
		return true
	}
	_, ok := s.MatchSuffix(path)
	return ok
}

// excludeCandidates lists the strings exclude rules are tried against:
// the path relative to the traversal root, its base name, its extension
// and each directory segment. Ancestors above the traversal root are
// intentionally not candidates, so an input under /home/vendor/src is not
// excluded by "vendor".
func excludeCandidates(relPath string) []string {
	name := filepath.Base(relPath)
	candidates := []string{relPath, name}
	if ext := util.Extension(name); ext != "" {
		candidates = append(candidates, ext)
		if bare := strings.TrimPrefix(ext, "."); bare != "" {
			candidates = append(candidates, bare)
		}
	}
	return append(candidates, util.Segments(relPath)...)
}
