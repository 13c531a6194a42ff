package strategy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aristath/bullbear/internal/domain"
)

// Rule is one weighted strategy from the strategy document
type Rule struct {
	Name     string
	Combo    []domain.Indicator
	Category string
	Weight   float64
	Kind     Kind
	Params   Params
}

// RuleSet is the ordered, validated list of rules plus the indicator
// whitelist they were checked against.
type RuleSet struct {
	Rules      []Rule
	Indicators map[domain.Indicator]string
}

type ruleSetDocument struct {
	Indicators map[string]json.RawMessage `json:"indicators"`
	Strategies []ruleDocument             `json:"strategies"`
}

type ruleDocument struct {
	Name   string   `json:"name"`
	Combo  []string `json:"combo"`
	Type   string   `json:"type"`
	Weight float64  `json:"weight"`
	Kind   string   `json:"kind,omitempty"`
	Params Params   `json:"params,omitempty"`
}

// LoadRuleSet reads and validates a strategy document from disk.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read strategy config: %w", err)
	}

	rs, err := ParseRuleSet(data)
	if err != nil {
		return nil, fmt.Errorf("invalid strategy config %s: %w", path, err)
	}
	return rs, nil
}

// ParseRuleSet validates a strategy document. Every problem is reported at
// load time: unknown kinds, unknown or non-whitelisted indicators, duplicate
// names, negative weights and combos too short for their kind.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var doc ruleSetDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse strategy document: %w", err)
	}

	whitelist := make(map[domain.Indicator]string, len(doc.Indicators))
	for name, raw := range doc.Indicators {
		ind, err := domain.ParseIndicator(name)
		if err != nil {
			return nil, fmt.Errorf("indicators: %w", err)
		}
		whitelist[ind] = describe(raw)
	}

	if len(doc.Strategies) == 0 {
		return nil, errors.New("strategy document has no strategies")
	}

	rules := make([]Rule, 0, len(doc.Strategies))
	seen := make(map[string]bool, len(doc.Strategies))
	for i, rd := range doc.Strategies {
		rule, err := buildRule(rd, whitelist)
		if err != nil {
			return nil, fmt.Errorf("strategy %d (%q): %w", i, rd.Name, err)
		}
		if seen[rule.Name] {
			return nil, fmt.Errorf("strategy %d: duplicate name %q", i, rule.Name)
		}
		seen[rule.Name] = true
		rules = append(rules, rule)
	}

	return &RuleSet{Rules: rules, Indicators: whitelist}, nil
}

func buildRule(rd ruleDocument, whitelist map[domain.Indicator]string) (Rule, error) {
	if rd.Name == "" {
		return Rule{}, errors.New("missing name")
	}
	if rd.Weight < 0 {
		return Rule{}, fmt.Errorf("negative weight %v", rd.Weight)
	}

	kind, err := resolveKind(rd)
	if err != nil {
		return Rule{}, err
	}

	combo := make([]domain.Indicator, 0, len(rd.Combo))
	for _, name := range rd.Combo {
		ind, err := domain.ParseIndicator(name)
		if err != nil {
			return Rule{}, err
		}
		if _, ok := whitelist[ind]; !ok {
			return Rule{}, fmt.Errorf("indicator %q is not declared in indicators", name)
		}
		combo = append(combo, ind)
	}
	if len(combo) < kind.MinCombo() {
		return Rule{}, fmt.Errorf("%s needs %d combo indicators, got %d", kind, kind.MinCombo(), len(combo))
	}

	return Rule{
		Name:     rd.Name,
		Combo:    combo,
		Category: rd.Type,
		Weight:   rd.Weight,
		Kind:     kind,
		Params:   rd.Params,
	}, nil
}

func resolveKind(rd ruleDocument) (Kind, error) {
	if rd.Kind != "" {
		return ParseKind(rd.Kind)
	}
	if k, ok := legacyKinds[rd.Name]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: no kind given and name %q is not a known rule", ErrUnknownKind, rd.Name)
}

// describe flattens an indicator descriptor into a short string. Descriptors
// are free-form in the document and only used for display.
func describe(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		if d, ok := obj["description"].(string); ok {
			return d
		}
	}
	return string(raw)
}

// TotalWeight is the sum of all rule weights.
func (rs *RuleSet) TotalWeight() float64 {
	var total float64
	for _, r := range rs.Rules {
		total += r.Weight
	}
	return total
}
