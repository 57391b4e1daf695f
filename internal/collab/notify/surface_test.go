package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webfuse/extbridge/internal/types"
)

func TestSendReplacesSameID(t *testing.T) {
	s := NewSurface(nil)

	require.NoError(t, s.Send("n1", types.Notification{Title: "first"}))
	require.NoError(t, s.Send("n1", types.Notification{Title: "second"}))

	assert.Equal(t, 1, s.Live())
	n, ok := s.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "second", n.Title)
}

func TestWithdrawUnknownIsSilent(t *testing.T) {
	s := NewSurface(nil)
	s.Withdraw("never-sent")
	assert.Equal(t, 0, s.Live())
}

func TestClickRoutesToHandler(t *testing.T) {
	s := NewSurface(nil)

	var gotID string
	var gotIndex int
	s.SetActionHandler(func(id string, buttonIndex int) {
		gotID, gotIndex = id, buttonIndex
	})

	require.NoError(t, s.Send("n1", types.Notification{Title: "t"}))
	require.True(t, s.Click("n1", 1))
	assert.Equal(t, "n1", gotID)
	assert.Equal(t, 1, gotIndex)

	// Dead or unknown notifications swallow the click.
	s.Withdraw("n1")
	assert.False(t, s.Click("n1", -1))
}
