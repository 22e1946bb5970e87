package rulefile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hornetlabs/synchdb/internal/model"
	"github.com/hornetlabs/synchdb/internal/rulestore"
	"github.com/hornetlabs/synchdb/internal/typemap"
)

const sampleDoc = `{
  "transform_datatype_rules": [
    {"translate_from": "INT", "translate_to": "BIGINT", "translate_to_size": -1},
    {"translate_from": "DECIMAL", "translate_to": "NUMERIC", "translate_to_size": 19, "from_column": "inv.orders.amount"}
  ],
  "transform_objectname_rules": [
    {"object_type": "table", "source_object": "inv.orders", "destination_object": "public.orders"},
    {"object_type": "column", "source_object": "inv.orders.qty", "destination_object": "quantity"}
  ],
  "transform_expression_rules": [
    {"transform_from": "inv.orders.amount", "transform_expression": "amount / 100"}
  ]
}`

func TestLoadParsesAllThreeSections(t *testing.T) {
	f, err := Load(strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Len(t, f.DatatypeRules, 2)
	require.Len(t, f.ObjectNameRules, 2)
	require.Len(t, f.ExpressionRules, 1)
}

func TestLoadInvalidJSON(t *testing.T) {
	_, err := Load(strings.NewReader("not json"))
	require.Error(t, err)
}

func TestApplyTypeRules(t *testing.T) {
	f, err := Load(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	registry := typemap.NewRegistry()
	f.ApplyTypeRules(registry)

	m := registry.Resolve(model.MySQL, "", "INT", 0, false)
	require.Equal(t, "BIGINT", m.DestinationTypeName)

	m = registry.Resolve(model.MySQL, "inv.orders.amount", "DECIMAL", 0, false)
	require.Equal(t, "NUMERIC", m.DestinationTypeName)
	require.Equal(t, 19, m.FixedLength)
}

func TestApplyNameAndExpressionRules(t *testing.T) {
	f, err := Load(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	store := rulestore.NewStore()
	f.ApplyNameAndExpressionRules(store)

	require.Equal(t, "public.orders", store.ResolveName(rulestore.KindTable, "inv.orders"))
	require.Equal(t, "quantity", store.ResolveName(rulestore.KindColumn, "inv.orders.qty"))

	expr, ok := store.ResolveTransform("inv.orders.amount")
	require.True(t, ok)
	require.Equal(t, "amount / 100", expr)
}

func TestEmptyFile(t *testing.T) {
	f := EmptyFile()
	require.Empty(t, f.DatatypeRules)
	require.Empty(t, f.ObjectNameRules)
	require.Empty(t, f.ExpressionRules)

	registry := typemap.NewRegistry()
	f.ApplyTypeRules(registry)
	store := rulestore.NewStore()
	f.ApplyNameAndExpressionRules(store)
}
