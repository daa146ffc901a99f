package tiers

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	apperrors "github.com/R3E-Network/nft_platform/internal/errors"
)

// Metadata drives dynamic tiers: properties are shown on the token, and
// conditions decide when triggers should update them.
type Metadata struct {
	Properties []Property  `json:"properties,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Triggers   []Trigger   `json:"triggers,omitempty"`
}

type Property struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Condition combines its rules with Operator ("and" or "or").
type Condition struct {
	Operator string `json:"operator"`
	Rules    []Rule `json:"rules"`
}

// Rule compares the value at Path in an input document with Value.
type Rule struct {
	Property string      `json:"property,omitempty"`
	Path     string      `json:"path"`
	Op       string      `json:"op"`
	Value    interface{} `json:"value"`
}

type Trigger struct {
	Type     string `json:"type"`
	UpdateAt int64  `json:"updateAt,omitempty"`
}

var (
	propertyTypes = map[string]bool{"string": true, "number": true, "boolean": true}
	ruleOps       = map[string]bool{"eq": true, "ne": true, "gt": true, "gte": true, "lt": true, "lte": true, "contains": true, "exists": true}
	triggerTypes  = map[string]bool{"schedule": true, "event": true}
)

// ParseMetadata decodes and validates raw tier metadata. Empty input is
// valid and yields an empty Metadata.
func ParseMetadata(raw json.RawMessage) (Metadata, error) {
	var m Metadata
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return m, nil
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Metadata{}, apperrors.BadRequestf("Invalid tier metadata: %v", err)
	}
	if err := ValidateMetadata(m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// ValidateMetadata checks property and rule structure and that every rule
// path compiles.
func ValidateMetadata(m Metadata) error {
	names := make(map[string]bool, len(m.Properties))
	for i, p := range m.Properties {
		if strings.TrimSpace(p.Name) == "" {
			return apperrors.BadRequestf("properties[%d]: name is required", i)
		}
		if names[p.Name] {
			return apperrors.BadRequestf("properties[%d]: duplicate name %q", i, p.Name)
		}
		names[p.Name] = true
		if !propertyTypes[p.Type] {
			return apperrors.BadRequestf("properties[%d]: unsupported type %q", i, p.Type)
		}
	}
	for i, c := range m.Conditions {
		if op := strings.ToLower(c.Operator); op != "and" && op != "or" {
			return apperrors.BadRequestf("conditions[%d]: operator must be and or or", i)
		}
		if len(c.Rules) == 0 {
			return apperrors.BadRequestf("conditions[%d]: at least one rule is required", i)
		}
		for j, r := range c.Rules {
			if !ruleOps[r.Op] {
				return apperrors.BadRequestf("conditions[%d].rules[%d]: unsupported op %q", i, j, r.Op)
			}
			if r.Property != "" && !names[r.Property] {
				return apperrors.BadRequestf("conditions[%d].rules[%d]: unknown property %q", i, j, r.Property)
			}
			if _, err := jsonpath.New(r.Path); err != nil {
				return apperrors.BadRequestf("conditions[%d].rules[%d]: invalid path %q", i, j, r.Path)
			}
		}
	}
	for i, t := range m.Triggers {
		if !triggerTypes[t.Type] {
			return apperrors.BadRequestf("triggers[%d]: unsupported type %q", i, t.Type)
		}
		if t.Type == "schedule" && t.UpdateAt <= 0 {
			return apperrors.BadRequestf("triggers[%d]: updateAt is required for schedule triggers", i)
		}
	}
	return nil
}

// EvaluateConditions reports whether every condition holds for doc. Metadata
// without conditions always matches.
func EvaluateConditions(ctx context.Context, m Metadata, doc interface{}) (bool, error) {
	for _, c := range m.Conditions {
		either := strings.EqualFold(c.Operator, "or")
		matched := !either
		for _, r := range c.Rules {
			ok, err := evaluateRule(ctx, r, doc)
			if err != nil {
				return false, err
			}
			if either && ok {
				matched = true
				break
			}
			if !either && !ok {
				matched = false
				break
			}
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func evaluateRule(ctx context.Context, r Rule, doc interface{}) (bool, error) {
	eval, err := jsonpath.New(r.Path)
	if err != nil {
		return false, apperrors.BadRequestf("invalid path %q", r.Path)
	}
	got, err := eval(ctx, doc)
	if r.Op == "exists" {
		return err == nil && got != nil, nil
	}
	if err != nil {
		// unknown keys do not match
		return false, nil
	}

	switch r.Op {
	case "eq":
		return equalValues(got, r.Value), nil
	case "ne":
		return !equalValues(got, r.Value), nil
	case "contains":
		return containsValue(got, r.Value), nil
	}

	left, lok := toDecimal(got)
	right, rok := toDecimal(r.Value)
	if !lok || !rok {
		return false, nil
	}
	switch r.Op {
	case "gt":
		return left.GreaterThan(right), nil
	case "gte":
		return left.GreaterThanOrEqual(right), nil
	case "lt":
		return left.LessThan(right), nil
	case "lte":
		return left.LessThanOrEqual(right), nil
	}
	return false, fmt.Errorf("unsupported op %q", r.Op)
}

func equalValues(a, b interface{}) bool {
	if da, ok := toDecimal(a); ok {
		if db, ok := toDecimal(b); ok {
			return da.Equal(db)
		}
	}
	return reflect.DeepEqual(a, b)
}

func containsValue(haystack, needle interface{}) bool {
	switch h := haystack.(type) {
	case string:
		n, ok := needle.(string)
		return ok && strings.Contains(h, n)
	case []interface{}:
		for _, v := range h {
			if equalValues(v, needle) {
				return true
			}
		}
	}
	return false
}

func toDecimal(v interface{}) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
