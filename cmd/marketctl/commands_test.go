package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, splitList([]string{"2025-01, 2025-02", "", "2025-03"}))
	assert.Nil(t, splitList(nil))
}
