package lthread

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type plainStruct struct {
	A int
	B string
	C [4]byte
}

type nestedPointer struct {
	P *int
}

func TestIsolationCheckAllowsValueTypes(t *testing.T) {
	require.NoError(t, isolationCheck([]any{1, "x", true, 3.14, plainStruct{A: 1, B: "y"}}))
}

func TestIsolationCheckAllowsTid(t *testing.T) {
	require.NoError(t, isolationCheck([]any{tidOf(newMailbox())}))
}

func TestIsolationCheckAllowsNil(t *testing.T) {
	require.NoError(t, isolationCheck([]any{nil}))
}

func TestIsolationCheckRejectsPointer(t *testing.T) {
	v := 5
	require.Error(t, isolationCheck([]any{&v}))
}

func TestIsolationCheckRejectsNestedPointer(t *testing.T) {
	v := 5
	require.Error(t, isolationCheck([]any{nestedPointer{P: &v}}))
}

func TestIsolationCheckRejectsChannel(t *testing.T) {
	require.Error(t, isolationCheck([]any{make(chan int)}))
}

func TestIsolationCheckRejectsFunc(t *testing.T) {
	require.Error(t, isolationCheck([]any{func() {}}))
}

func TestIsolationCheckRejectsMapAndSlice(t *testing.T) {
	require.Error(t, isolationCheck([]any{map[string]int{}}))
	require.Error(t, isolationCheck([]any{[]int{1, 2, 3}}))
}

func TestIsolationCheckRejectsInterfaceField(t *testing.T) {
	type holder struct{ V any }
	require.Error(t, isolationCheck([]any{holder{V: 1}}))
}
