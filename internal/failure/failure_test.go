package failure

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(SchemaDrift, "Genes.extra", "column has no schema entry")
	assert.Equal(t, "schema-drift Genes.extra: column has no schema entry", err.Error())

	wrapped := Wrap(NotFound, "/tmp/lovd.txt", os.ErrNotExist)
	assert.Equal(t, "not-found /tmp/lovd.txt: file does not exist", wrapped.Error())
	assert.ErrorIs(t, wrapped, os.ErrNotExist)
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := New(Collaborator, "liftover", "timeout")
	err := fmt.Errorf("fill hg38: %w", base)

	assert.Equal(t, Collaborator, KindOf(err))
	assert.True(t, Is(err, Collaborator))
	assert.False(t, Is(err, NotFound))
	assert.Equal(t, Unknown, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, Unknown))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "write", Write.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
