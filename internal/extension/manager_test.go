package extension

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/types"
)

const sampleManifest = `{
	"name": "Archive Helper",
	"version": "1.2.0",
	"permissions": ["downloads", "cookies", "https://*.example.com/*"],
	"host_permissions": ["<all_urls>"],
	"commands": {
		"save-page": {
			"description": "Save the current page",
			"suggested_key": {"default": "Ctrl+Shift+S"}
		},
		"open-vault": {
			"description": "Open the vault",
			"suggested_key": {"default": "Alt+V"}
		}
	}
}`

func TestLoadSplitsHostPatterns(t *testing.T) {
	m := NewManager(logging.NewNop())

	ext, err := m.Load([]byte(sampleManifest))
	require.NoError(t, err)

	assert.NotEmpty(t, ext.GUID)
	assert.Equal(t, "Archive Helper", ext.Name)
	assert.Equal(t, []string{"downloads", "cookies"}, ext.Permissions)
	assert.Equal(t, []string{"https://*.example.com/*", "<all_urls>"}, ext.HostPermissions)
}

func TestCommandDefaultsOrderedByName(t *testing.T) {
	m := NewManager(logging.NewNop())

	ext, err := m.Load([]byte(sampleManifest))
	require.NoError(t, err)

	require.Len(t, ext.Commands, 2)
	assert.Equal(t, "open-vault", ext.Commands[0].Name)
	assert.Equal(t, "Alt+V", ext.Commands[0].Shortcut)
	assert.Equal(t, "save-page", ext.Commands[1].Name)
}

func TestLoadRejectsBadManifest(t *testing.T) {
	m := NewManager(logging.NewNop())

	_, err := m.Load([]byte(`{"version": "1.0"}`))
	assert.Error(t, err, "manifest without a name must not load")

	_, err = m.Load([]byte(`{not json`))
	assert.Error(t, err)
}

func TestUnloadCancelsLifetime(t *testing.T) {
	m := NewManager(logging.NewNop())

	ext, err := m.Load([]byte(`{"name": "Ephemeral"}`))
	require.NoError(t, err)

	ctx := m.Context(ext.GUID)
	select {
	case <-ctx.Done():
		t.Fatal("lifetime context cancelled while loaded")
	default:
	}

	require.NoError(t, m.Unload(ext.GUID))
	<-ctx.Done()

	_, ok := m.Get(ext.GUID)
	assert.False(t, ok)
	assert.Error(t, m.Unload(ext.GUID), "double unload must error")
}

func TestHooksFire(t *testing.T) {
	m := NewManager(logging.NewNop())

	var loads, unloads []string
	m.OnLoad(func(ext *types.Extension) { loads = append(loads, ext.GUID) })
	m.OnUnload(func(ext *types.Extension) { unloads = append(unloads, ext.GUID) })

	ext, err := m.Load([]byte(`{"name": "Hooked"}`))
	require.NoError(t, err)
	require.NoError(t, m.Unload(ext.GUID))

	assert.Equal(t, []string{ext.GUID}, loads)
	assert.Equal(t, []string{ext.GUID}, unloads)
}

func TestUnknownContextIsCancelled(t *testing.T) {
	m := NewManager(logging.NewNop())

	ctx := m.Context("missing")
	select {
	case <-ctx.Done():
	default:
		t.Fatal("context for unknown extension must be cancelled")
	}
}
