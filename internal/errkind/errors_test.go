package errkind

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindFatal(t *testing.T) {
	require.True(t, Config.Fatal())
	require.True(t, Catalog.Fatal())
	require.True(t, Producer.Fatal())
	require.True(t, Internal.Fatal())
	require.False(t, Parse.Fatal())
	require.False(t, Mapping.Fatal())
	require.False(t, Decode.Fatal())
	require.False(t, Apply.Fatal())
}

func TestNewAndError(t *testing.T) {
	err := New(Parse, "orders", "parse_dml", "unexpected token")
	require.Equal(t, "[orders/parse] parse_dml: unexpected token", err.Error())
}

func TestWithContextAppendsToMessage(t *testing.T) {
	err := New(Apply, "orders", "apply_ddl", "exec failed").WithContext("sql", "ALTER TABLE x")
	require.Contains(t, err.Error(), "context:")
	require.Contains(t, err.Error(), "ALTER TABLE x")
}

func TestWrapPreservesExistingSynchError(t *testing.T) {
	inner := New(Decode, "orders", "decode_value", "bad base64")
	wrapped := Wrap(Apply, "orders", "apply_dml", inner)
	require.Same(t, inner, wrapped)
}

func TestWrapClassifiesPlainError(t *testing.T) {
	plain := errors.New("connection refused")
	wrapped := Wrap(Producer, "orders", "fetch_events", plain)

	var se *SynchError
	require.True(t, errors.As(wrapped, &se))
	require.Equal(t, Producer, se.Kind)
	require.Equal(t, plain, se.Cause)
}

func TestWrapNilIsNil(t *testing.T) {
	require.Nil(t, Wrap(Internal, "orders", "op", nil))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &SynchError{Kind: Internal, Cause: cause}
	require.Equal(t, cause, errors.Unwrap(err))
}

func TestIsDelegatesToCause(t *testing.T) {
	sentinel := errors.New("sentinel")
	err := &SynchError{Kind: Internal, Cause: sentinel}
	require.True(t, errors.Is(err, sentinel))
}

func TestKindOf(t *testing.T) {
	se := New(Mapping, "orders", "resolve_type", "no mapping")
	require.Equal(t, Mapping, KindOf(se))
	require.Equal(t, Internal, KindOf(errors.New("plain")))
}
