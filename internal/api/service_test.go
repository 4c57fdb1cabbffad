package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFullMethodAndPublic(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/taskdex.v1.Taskdex/Redeem", FullMethod(MethodRedeem))
	require.True(t, Public(FullMethod(MethodSignUp)))
	require.True(t, Public(FullMethod(MethodSignIn)))
	require.False(t, Public(FullMethod(MethodGetStats)))
	require.False(t, Public("/other.Service/SignIn"))
	require.Len(t, ServiceDesc.Methods, 11)
}
