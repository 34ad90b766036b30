package lthread

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariantConvertsToSingleValue(t *testing.T) {
	v := newVariant(42)
	require.True(t, v.ConvertsTo([]reflect.Type{reflect.TypeOf(0)}))
	require.False(t, v.ConvertsTo([]reflect.Type{reflect.TypeOf("")}))
	require.False(t, v.ConvertsTo([]reflect.Type{reflect.TypeOf(0), reflect.TypeOf(0)}))
}

func TestVariantConvertsToAnyWildcard(t *testing.T) {
	anyType := reflect.TypeOf((*any)(nil)).Elem()
	v := newVariant("whatever")
	require.True(t, v.ConvertsTo([]reflect.Type{anyType}))
}

func TestVariantConvertsToTuple(t *testing.T) {
	v := newVariant(1, "two")
	require.True(t, v.ConvertsTo([]reflect.Type{reflect.TypeOf(0), reflect.TypeOf("")}))
	require.False(t, v.ConvertsTo([]reflect.Type{reflect.TypeOf("")}))
}

func TestVariantNilOnlyMatchesAny(t *testing.T) {
	anyType := reflect.TypeOf((*any)(nil)).Elem()
	v := newVariant(nil)
	require.True(t, v.ConvertsTo([]reflect.Type{anyType}))
	require.False(t, v.ConvertsTo([]reflect.Type{reflect.TypeOf("")}))
}

func TestVariantTypeName(t *testing.T) {
	require.Equal(t, "int", newVariant(1).TypeName())
	require.Equal(t, "(int, string)", newVariant(1, "x").TypeName())
}

func TestVariantMapDestructures(t *testing.T) {
	v := newVariant(3, "x")
	out := v.Map(func(n int, s string) string {
		return fmt.Sprintf("%s%d", s, n)
	})
	require.Len(t, out, 1)
	require.Equal(t, "x3", out[0])
}

func TestVariantMapPanicsOnMismatch(t *testing.T) {
	v := newVariant("x")
	require.Panics(t, func() {
		v.Map(func(n int) {})
	})
}

func TestGetExtractsValue(t *testing.T) {
	v := newVariant("hi")
	require.Equal(t, "hi", Get[string](v))
}

func TestGetPanicsOnArityMismatch(t *testing.T) {
	v := newVariant(1, 2)
	require.Panics(t, func() {
		Get[int](v)
	})
}

func TestGetPanicsOnTypeMismatch(t *testing.T) {
	v := newVariant(1)
	require.Panics(t, func() {
		Get[string](v)
	})
}
