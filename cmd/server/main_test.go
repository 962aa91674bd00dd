package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedOrigins(t *testing.T) {
	origins := allowedOrigins("https://cart.example.com")
	assert.Equal(t, "https://cart.example.com", origins[0])
	assert.Len(t, origins, 9)

	// The default frontend origin is already a dev origin
	assert.Len(t, allowedOrigins("http://localhost:5173"), 8)
	assert.Len(t, allowedOrigins(""), 8)
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t,
		[]string{"cart.example.com", "localhost:5173", "*.example.org"},
		originPatterns([]string{"https://cart.example.com", "http://localhost:5173", "*.example.org"}),
	)
}
