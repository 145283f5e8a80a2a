package mman

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesOnKind(t *testing.T) {
	e1 := newError(KindOutOfRange, "offset %d bad", 5)
	assert.True(t, errors.Is(e1, ErrOutOfRange), "errors.Is should match on Kind")
	assert.False(t, errors.Is(e1, ErrResource), "errors.Is should not match a different Kind")
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	e := wrapError(KindResource, cause, "mmap failed")
	assert.Equal(t, cause, errors.Unwrap(e))
}

func TestNewCloseWithActive_AggregatesFailures(t *testing.T) {
	b := newMultiError()
	b.append(errors.New("first"))
	b.append(errors.New("second"))
	b.append(nil)

	err := newCloseWithActive([]string{"Region<a@0,10>", "Region<b@10,10>"}, b.result())
	assert.Equal(t, KindCloseWithActive, err.Kind)
	assert.Len(t, err.Regions, 2)

	var merr *multierror.Error
	require.True(t, errors.As(err.Cause, &merr), "Cause should unwrap to a *multierror.Error")
	assert.Len(t, merr.Errors, 2)
}

func TestNewCloseWithActive_NilCauseWhenNoFailures(t *testing.T) {
	b := newMultiError()
	err := newCloseWithActive(nil, b.result())
	assert.Nil(t, err.Cause)
}
