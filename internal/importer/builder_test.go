package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvariantViolationError(t *testing.T) {
	err := &InvariantViolation{Detail: "boom"}
	assert.Contains(t, err.Error(), "boom")
}
