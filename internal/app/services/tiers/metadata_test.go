package tiers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dynamicMetadata = `{
  "properties": [{"name": "level", "type": "number", "value": 1}],
  "conditions": [
    {"operator": "and", "rules": [
      {"property": "level", "path": "$.player.score", "op": "gte", "value": 100},
      {"path": "$.player.badges", "op": "contains", "value": "gold"}
    ]},
    {"operator": "or", "rules": [
      {"path": "$.season", "op": "eq", "value": "summer"},
      {"path": "$.event", "op": "exists"}
    ]}
  ],
  "triggers": [{"type": "schedule", "updateAt": 1717200000}]
}`

func TestParseMetadataValid(t *testing.T) {
	m, err := ParseMetadata(json.RawMessage(dynamicMetadata))
	require.NoError(t, err)
	assert.Len(t, m.Properties, 1)
	assert.Len(t, m.Conditions, 2)

	empty, err := ParseMetadata(nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Conditions)
}

func TestParseMetadataRejects(t *testing.T) {
	tests := map[string]string{
		"unknown field":    `{"colour": "red"}`,
		"bad operator":     `{"conditions": [{"operator": "xor", "rules": [{"path": "$.a", "op": "eq", "value": 1}]}]}`,
		"no rules":         `{"conditions": [{"operator": "and", "rules": []}]}`,
		"bad path":         `{"conditions": [{"operator": "and", "rules": [{"path": "$[", "op": "eq", "value": 1}]}]}`,
		"unknown property": `{"conditions": [{"operator": "and", "rules": [{"property": "hp", "path": "$.a", "op": "eq", "value": 1}]}]}`,
		"property type":    `{"properties": [{"name": "x", "type": "date"}]}`,
		"schedule time":    `{"triggers": [{"type": "schedule"}]}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseMetadata(json.RawMessage(raw))
			assert.Error(t, err)
		})
	}
}

func TestEvaluateConditions(t *testing.T) {
	m, err := ParseMetadata(json.RawMessage(dynamicMetadata))
	require.NoError(t, err)

	doc := func(raw string) interface{} {
		var v interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &v))
		return v
	}
	ctx := context.Background()

	ok, err := EvaluateConditions(ctx, m, doc(`{"player": {"score": 150, "badges": ["gold"]}, "season": "summer"}`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateConditions(ctx, m, doc(`{"player": {"score": 150, "badges": ["gold"]}, "event": "launch"}`))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateConditions(ctx, m, doc(`{"player": {"score": 99, "badges": ["gold"]}, "season": "summer"}`))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvaluateConditions(ctx, m, doc(`{"player": {"score": 150, "badges": ["gold"]}, "season": "winter"}`))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = EvaluateConditions(ctx, Metadata{}, doc(`{}`))
	require.NoError(t, err)
	assert.True(t, ok)
}
