package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCarriesMetadata(t *testing.T) {
	t.Parallel()

	err := Newf("track %d out of range", 42).
		Component("serialctl").
		Category(CategoryValidation).
		Context("track", 42).
		Build()

	assert.Equal(t, "track 42 out of range", err.Error())
	assert.Equal(t, "serialctl", err.Component)
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, 42, err.GetContext()["track"])
}

func TestNewNilErrorStaysUsable(t *testing.T) {
	t.Parallel()

	err := New(nil).Component("engine").Build()
	require.NotNil(t, err)
	assert.NotEmpty(t, err.Error())
}

func TestUnwrapPreservesChain(t *testing.T) {
	t.Parallel()

	err := New(io.ErrUnexpectedEOF).Category(CategorySerialIO).Build()
	assert.True(t, Is(err, io.ErrUnexpectedEOF))
	assert.True(t, HasCategory(err, CategorySerialIO))
	assert.False(t, HasCategory(err, CategoryLimit))
}

func TestLogAttrsIncludesContext(t *testing.T) {
	t.Parallel()

	err := Newf("device gone").
		Component("transport").
		Category(CategoryAudioDevice).
		Context("device", "hw:1,0").
		Build()

	attrs := err.LogAttrs()
	assert.Contains(t, attrs, "component")
	assert.Contains(t, attrs, "transport")
	assert.Contains(t, attrs, "device")
	assert.Contains(t, attrs, "hw:1,0")
}
