package verification

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Selector is a CSS query, optionally narrowed to elements whose text contains Text
// (case-insensitive).
type Selector struct {
	CSS  string `yaml:"css" validate:"required"`
	Text string `yaml:"text"`
}

func (s Selector) String() string {
	if s.Text == "" {
		return s.CSS
	}
	return fmt.Sprintf("%s:text(%q)", s.CSS, s.Text)
}

// RuleSet is the on-disk rule file layout.
type RuleSet struct {
	InputSelectors  []Selector `yaml:"input_selectors" validate:"required,min=1,dive"`
	RevealSelectors []Selector `yaml:"reveal_selectors" validate:"dive"`
	SubmitSelectors []Selector `yaml:"submit_selectors" validate:"dive"`
	SuccessPatterns []string   `yaml:"success_patterns" validate:"required,min=1,dive,required"`
	ErrorPatterns   []string   `yaml:"error_patterns" validate:"required,min=1,dive,required"`
}

// Rules is a validated RuleSet with compiled patterns.
type Rules struct {
	RuleSet
	success []*regexp.Regexp
	failure []*regexp.Regexp
}

// LoadRules reads the rule file at path, or the built-in rules when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return ParseRules(defaultRulesYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read verification rules: %w", err)
	}
	return ParseRules(data)
}

// DefaultRules returns the built-in rules.
func DefaultRules() *Rules {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded verification rules: %v", err))
	}
	return rules
}

// ParseRules decodes and validates a YAML rule document.
func ParseRules(data []byte) (*Rules, error) {
	var set RuleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode verification rules: %w", err)
	}
	if err := validator.New().Struct(set); err != nil {
		return nil, fmt.Errorf("invalid verification rules: %w", err)
	}

	success, err := compileAll(set.SuccessPatterns)
	if err != nil {
		return nil, fmt.Errorf("success_patterns: %w", err)
	}
	failure, err := compileAll(set.ErrorPatterns)
	if err != nil {
		return nil, fmt.Errorf("error_patterns: %w", err)
	}
	return &Rules{RuleSet: set, success: success, failure: failure}, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Match reports which pattern sets fire against the visible page text.
func (r *Rules) Match(text string) (success, failure bool) {
	return anyMatch(r.success, text), anyMatch(r.failure, text)
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
