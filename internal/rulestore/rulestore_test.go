package rulestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveNamePassthroughWhenNoRule(t *testing.T) {
	s := NewStore()
	require.Equal(t, "inv.orders", s.ResolveName(KindTable, "inv.orders"))
}

func TestResolveNameCaseInsensitiveLookup(t *testing.T) {
	s := NewStore()
	s.SetObjectName(KindTable, "Inv.Orders", "public.orders")
	require.Equal(t, "public.orders", s.ResolveName(KindTable, "inv.orders"))
}

func TestResolveNameTableAndColumnKindsAreIndependent(t *testing.T) {
	s := NewStore()
	s.SetObjectName(KindTable, "inv.orders", "renamed_table")
	require.Equal(t, "inv.orders", s.ResolveName(KindColumn, "inv.orders"))
	require.Equal(t, "renamed_table", s.ResolveName(KindTable, "inv.orders"))
}

func TestDeleteObjectName(t *testing.T) {
	s := NewStore()
	s.SetObjectName(KindTable, "inv.orders", "renamed_table")
	s.DeleteObjectName(KindTable, "inv.orders")
	require.Equal(t, "inv.orders", s.ResolveName(KindTable, "inv.orders"))
}

func TestDeleteObjectNameUnknownIsNoop(t *testing.T) {
	s := NewStore()
	require.NotPanics(t, func() { s.DeleteObjectName(KindTable, "nope.nope") })
}

func TestResolveTransform(t *testing.T) {
	s := NewStore()
	_, ok := s.ResolveTransform("inv.orders.amount")
	require.False(t, ok)

	s.SetTransform("Inv.Orders.Amount", "amount / 100")
	expr, ok := s.ResolveTransform("inv.orders.amount")
	require.True(t, ok)
	require.Equal(t, "amount / 100", expr)
}
