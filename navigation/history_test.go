package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistory(t *testing.T) {
	h := NewHistory("")
	assert.Equal(t, "", h.Fragment())
	assert.False(t, h.Back())

	h.PushState("#bab1")
	h.PushState("bab2")
	assert.Equal(t, "#bab2", h.Fragment())

	assert.True(t, h.Back())
	assert.Equal(t, "#bab1", h.Fragment())
	h.PushState("#bab3")
	assert.False(t, h.Forward(), "push drops forward entries")
	assert.Equal(t, 3, h.Len())

	h.Assign("#bab3")
	assert.Equal(t, 3, h.Len(), "assigning the current fragment adds nothing")
	h.Assign("#home")
	assert.Equal(t, 4, h.Len())
}

func TestZeroHistory(t *testing.T) {
	var h History
	assert.Equal(t, "", h.Fragment())
	h.Assign("bab1")
	assert.Equal(t, "#bab1", h.Fragment())
	assert.True(t, h.Back())
	assert.Equal(t, "", h.Fragment())
}

func TestSectionFromFragment(t *testing.T) {
	assert.Equal(t, "bab1", SectionFromFragment("#bab1"))
	assert.Equal(t, "", SectionFromFragment("#"))
	assert.Equal(t, "", SectionFromFragment(""))
}
