package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	assert.Equal(t, DefaultID, FromContext(context.Background()))
	assert.Equal(t, DefaultID, FromContext(WithID(context.Background(), "  ")))
	assert.Equal(t, "acme", FromContext(WithID(context.Background(), "acme")))
}
