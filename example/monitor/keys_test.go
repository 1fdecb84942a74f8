package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyAction(t *testing.T) {

	tests := []struct {
		key  int
		want action
	}{
		{-1, actionNone},
		{'q', actionQuit},
		{'Q', actionQuit},
		{27, actionQuit},
		{'r', actionRetry},
		{'b', actionBack},
		{'x', actionNone},
		// key code with modifier bits set
		{0x100000 | 'q', actionQuit},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, keyAction(tt.key), "key %d", tt.key)
	}
}
