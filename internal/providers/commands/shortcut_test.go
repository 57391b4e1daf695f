package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateShortcut(t *testing.T) {
	tests := []struct {
		portable string
		want     string
	}{
		{"Ctrl+Shift+K", "<Primary><Shift>k"},
		{"Ctrl+K", "<Primary>k"},
		{"Alt+5", "<Alt>5"},
		{"Command+Period", "<Meta>period"},
		{"MacCtrl+Shift+Space", "<Control><Shift>space"},
		{"Ctrl+PageUp", "<Primary>Page_Up"},
		{"F5", "F5"},
		{"Shift+F12", "<Shift>F12"},
		{"MediaPlayPause", "XF86AudioPlay"},
	}

	for _, tt := range tests {
		got, err := translateShortcut(tt.portable)
		require.NoError(t, err, tt.portable)
		assert.Equal(t, tt.want, got, tt.portable)
	}
}

func TestTranslateShortcutRejects(t *testing.T) {
	for _, bad := range []string{
		"",
		"K",              // no modifier
		"Shift+K",        // Shift alone is not enough
		"Ctrl+Shift",     // modifier in key position
		"Ctrl+K+J",       // two keys
		"Ctrl+Escape",    // unsupported key
		"Hyper+K",        // unknown modifier
		"Ctrl+MediaStop", // media keys take no modifiers
		"F13",            // out of function-key range
	} {
		_, err := translateShortcut(bad)
		assert.Error(t, err, "shortcut %q must not translate", bad)
	}
}
