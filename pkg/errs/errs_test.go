package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := New(TypeMismatch, "a.b", "expected %s, got %s", "INT32", "STRING")

	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.NotErrorIs(t, err, ErrPathNotFound)
	assert.Equal(t, `TypeMismatch "a.b": expected INT32, got STRING`, err.Error())

	wrapped := fmt.Errorf("loading config: %w", err)
	assert.ErrorIs(t, wrapped, ErrTypeMismatch)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, TypeMismatch, kind)
	assert.True(t, Is(wrapped, TypeMismatch))
}

func TestErrorLocations(t *testing.T) {
	assert.Equal(t, "CorruptData at offset 12: truncated", Corrupt(12, "truncated").Error())
	assert.Equal(t, "SyntaxError at line 3, column 7: bad tag", Syntax(3, 7, "bad tag").Error())
	assert.Equal(t, "SyntaxError at line 3: bad", Syntax(3, 0, "bad").Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CorruptData, "", cause, "decoding")
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestListUnwrapsToMembers(t *testing.T) {
	var l List
	assert.NoError(t, l.Err())

	l = append(l, New(MissingMandatoryElement, "a", "missing"))
	assert.Same(t, l[0], l.Err())

	l = append(l, New(UnknownElement, "extra", "unexpected"))
	err := l.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingMandatoryElement)
	assert.ErrorIs(t, err, ErrUnknownElement)
	assert.NotErrorIs(t, err, ErrStateViolation)
	assert.Equal(t, []Kind{MissingMandatoryElement, UnknownElement}, l.Kinds())
	assert.Contains(t, err.Error(), "2 errors")
}

func TestWithPathCopies(t *testing.T) {
	base := New(ConstraintViolation, "", "too large")
	located := base.WithPath("motor.speed")
	assert.Empty(t, base.Path)
	assert.Equal(t, "motor.speed", located.Path)
	assert.ErrorIs(t, located, &Error{Kind: ConstraintViolation, Path: "motor.speed"})
	assert.NotErrorIs(t, located, &Error{Kind: ConstraintViolation, Path: "other"})
}
