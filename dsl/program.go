// Package dsl implements the advanced routing rule language: programs of
// ordered rules over a payment's normalized attributes, compiled once into an
// interpreter backend and executed per selection.
package dsl

import (
	"encoding/json"
	"fmt"

	"github.com/switchpay/routing/types"
)

// ComparisonOp is the operator of one comparison.
type ComparisonOp string

const (
	OpEqual            ComparisonOp = "equal"
	OpNotEqual         ComparisonOp = "not_equal"
	OpLessThan         ComparisonOp = "less_than"
	OpGreaterThan      ComparisonOp = "greater_than"
	OpLessThanEqual    ComparisonOp = "less_than_equal"
	OpGreaterThanEqual ComparisonOp = "greater_than_equal"
)

// ValueKind discriminates the right-hand side of a comparison.
type ValueKind string

const (
	ValueEnumVariant     ValueKind = "enum_variant"
	ValueNumber          ValueKind = "number"
	ValueStr             ValueKind = "str_value"
	ValueMetadataVariant ValueKind = "metadata_variant"
)

// ComparisonValue is the typed right-hand side of a comparison.
type ComparisonValue struct {
	Kind   ValueKind `json:"type"`
	Enum   string    `json:"value,omitempty"`
	Number int64     `json:"number,omitempty"`
	Str    string    `json:"str,omitempty"`
	MetaKey   string `json:"key,omitempty"`
	MetaValue string `json:"meta_value,omitempty"`
}

// UnmarshalJSON decodes the tagged value form:
//
//	{"type": "enum_variant", "value": "card"}
//	{"type": "number", "number": 1000}
//	{"type": "str_value", "str": "food"}
//	{"type": "metadata_variant", "key": "k", "meta_value": "v"}
func (v *ComparisonValue) UnmarshalJSON(data []byte) error {
	type alias ComparisonValue
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	switch decoded.Kind {
	case ValueEnumVariant, ValueNumber, ValueStr, ValueMetadataVariant:
	default:
		return fmt.Errorf("unknown comparison value type %q", decoded.Kind)
	}
	*v = ComparisonValue(decoded)
	return nil
}

// Comparison is one atomic predicate: an input key compared to a value.
type Comparison struct {
	LHS   string          `json:"lhs"`
	Comp  ComparisonOp    `json:"comparison"`
	Value ComparisonValue `json:"value"`
}

// IfCondition is a conjunction of comparisons. All must hold.
type IfCondition struct {
	Condition []Comparison `json:"condition"`
}

// Rule is one named arm of a program. The rule matches when any of its
// statements holds; statements are a disjunction of conjunctions.
type Rule struct {
	Name               string                   `json:"name"`
	ConnectorSelection types.ConnectorSelection `json:"connector_selection"`
	Statements         []IfCondition            `json:"statements"`
}

// Program is a complete advanced routing program: ordered rules falling
// through to a default selection.
type Program struct {
	DefaultSelection types.ConnectorSelection `json:"default_selection"`
	Rules            []Rule                   `json:"rules"`
	Metadata         map[string]string        `json:"metadata,omitempty"`
}

// ParseProgram decodes a raw advanced-algorithm document.
func ParseProgram(data json.RawMessage) (*Program, error) {
	var program Program
	if err := json.Unmarshal(data, &program); err != nil {
		return nil, fmt.Errorf("failed to parse routing program: %w", err)
	}
	return &program, nil
}
