package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPaginationQuery(t *testing.T) {
	assert.True(t, IsPaginationQuery("more"))
	assert.True(t, IsPaginationQuery("More!"))
	assert.True(t, IsPaginationQuery("  Show me more.  "))
	assert.True(t, IsPaginationQuery("give  me  more"))
	assert.True(t, IsPaginationQuery("are there more?"))

	assert.False(t, IsPaginationQuery("more about grace"))
	assert.False(t, IsPaginationQuery("what does Bob teach about faith"))
	assert.False(t, IsPaginationQuery(""))
}

func TestEffectiveQuery(t *testing.T) {
	history := []string{"tell me about grace", "more", "show me more"}
	assert.Equal(t, "tell me about grace", EffectiveQuery(history))

	// The most recent substantive turn wins.
	history = []string{"tell me about grace", "what about forgiveness", "more"}
	assert.Equal(t, "what about forgiveness", EffectiveQuery(history))

	assert.Equal(t, "", EffectiveQuery([]string{"more", "show me more"}))
	assert.Equal(t, "", EffectiveQuery(nil))
	assert.Equal(t, "", EffectiveQuery([]string{"  ", ""}))
}
