package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_SubscribeAndDispose(t *testing.T) {
	s := NewStore(0)
	var a, b []int

	disposeA := s.Subscribe(func(v int) { a = append(a, v) })
	disposeB := s.Subscribe(func(v int) { b = append(b, v) })
	defer disposeB()

	s.Set(1)
	disposeA()
	disposeA()
	s.Set(2)

	require.Equal(t, []int{1}, a)
	require.Equal(t, []int{1, 2}, b)
	require.Equal(t, 2, s.Get())
}
