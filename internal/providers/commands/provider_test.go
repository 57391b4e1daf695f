package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

type fakeHost struct {
	byAccel  map[string]string
	byAction map[string]string
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		byAccel:  make(map[string]string),
		byAction: make(map[string]string),
	}
}

func (h *fakeHost) Bound(accel string) (string, bool) {
	a, ok := h.byAccel[accel]
	return a, ok
}

func (h *fakeHost) Register(action, accel string) error {
	if accel != "" {
		h.byAccel[accel] = action
	}
	h.byAction[action] = accel
	return nil
}

func (h *fakeHost) Unregister(action string) {
	if accel, ok := h.byAction[action]; ok && accel != "" {
		delete(h.byAccel, accel)
	}
	delete(h.byAction, action)
}

type recorder struct {
	events []recorded
}

type recorded struct {
	guid    string
	event   string
	payload any
}

func (r *recorder) Broadcast(guid, event string, payload any) {
	r.events = append(r.events, recorded{guid, event, payload})
}

type fakeUI struct {
	popups, pages []string
}

func (u *fakeUI) OpenActionPopup(guid string) { u.popups = append(u.popups, guid) }
func (u *fakeUI) OpenPageAction(guid string)  { u.pages = append(u.pages, guid) }

func testExtension() *types.Extension {
	return &types.Extension{
		GUID: "ext-1",
		Commands: []types.CommandDefault{
			{Name: "save-page", Description: "Save the page", Shortcut: "Ctrl+Shift+S"},
			{Name: "silent", Description: "No shortcut"},
		},
	}
}

func setup(t *testing.T) (*Provider, *fakeHost, *recorder, *fakeUI, *types.Extension) {
	t.Helper()
	host := newFakeHost()
	bus := &recorder{}
	ui := &fakeUI{}
	p := NewProvider(host, bus, ui, logging.NewNop())
	ext := testExtension()
	p.Setup(ext)
	return p, host, bus, ui, ext
}

func exec(t *testing.T, p *Provider, ext *types.Extension, method string, args jsonv.Array) (*types.Result, error) {
	t.Helper()
	return p.Execute(context.Background(), method, args, &types.Sender{Extension: ext})
}

func TestSetupBindsManifestShortcuts(t *testing.T) {
	_, host, _, _, _ := setup(t)

	action, ok := host.Bound("<Primary><Shift>s")
	require.True(t, ok)
	assert.Equal(t, "ext-1::save-page", action)

	// Commands without a shortcut still get an activatable action.
	_, registered := host.byAction["ext-1::silent"]
	assert.True(t, registered)
}

func TestGetAll(t *testing.T) {
	p, _, _, _, ext := setup(t)

	result, err := exec(t, p, ext, "commands.getAll", nil)
	require.NoError(t, err)

	wire := result.Data.([]map[string]any)
	require.Len(t, wire, 2)
	assert.Equal(t, "save-page", wire[0]["name"])
	assert.Equal(t, "Ctrl+Shift+S", wire[0]["shortcut"])
	assert.Equal(t, "silent", wire[1]["name"])
}

func TestConflictingAcceleratorSkipped(t *testing.T) {
	host := newFakeHost()
	require.NoError(t, host.Register("app::bookmark", "<Primary><Shift>s"))

	p := NewProvider(host, &recorder{}, &fakeUI{}, logging.NewNop())
	ext := testExtension()
	p.Setup(ext)

	holder, ok := host.Bound("<Primary><Shift>s")
	require.True(t, ok)
	assert.Equal(t, "app::bookmark", holder, "pre-existing binding must be unchanged")

	// The command keeps its suggested shortcut but holds no binding.
	assert.Equal(t, "", host.byAction["ext-1::save-page"])
	result, err := exec(t, p, ext, "commands.getAll", nil)
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Shift+S", result.Data.([]map[string]any)[0]["shortcut"])
}

func TestUpdateShortcut(t *testing.T) {
	p, host, _, _, ext := setup(t)

	_, err := exec(t, p, ext, "commands.update", jsonv.Array{jsonv.Object{
		"name":     "save-page",
		"shortcut": "Alt+S",
	}})
	require.NoError(t, err)

	_, oldBound := host.Bound("<Primary><Shift>s")
	assert.False(t, oldBound, "old accelerator must be released")

	action, ok := host.Bound("<Alt>s")
	require.True(t, ok)
	assert.Equal(t, "ext-1::save-page", action)
}

func TestUpdateEmptyShortcutClears(t *testing.T) {
	p, host, _, _, ext := setup(t)

	_, err := exec(t, p, ext, "commands.update", jsonv.Array{jsonv.Object{
		"name":     "save-page",
		"shortcut": "",
	}})
	require.NoError(t, err)

	_, bound := host.Bound("<Primary><Shift>s")
	assert.False(t, bound)

	result, _ := exec(t, p, ext, "commands.getAll", nil)
	wire := result.Data.([]map[string]any)
	assert.Equal(t, "", wire[0]["shortcut"])
}

func TestUpdateBadShortcutLeavesStateAlone(t *testing.T) {
	p, host, _, _, ext := setup(t)

	_, err := exec(t, p, ext, "commands.update", jsonv.Array{jsonv.Object{
		"name":     "save-page",
		"shortcut": "NotAKey",
	}})
	var ce *types.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrInvalidArgument, ce.Kind)

	action, ok := host.Bound("<Primary><Shift>s")
	require.True(t, ok, "failed update must not disturb the binding")
	assert.Equal(t, "ext-1::save-page", action)
}

func TestResetRestoresDefaults(t *testing.T) {
	p, host, _, _, ext := setup(t)

	_, err := exec(t, p, ext, "commands.update", jsonv.Array{jsonv.Object{
		"name":        "save-page",
		"description": "Changed",
		"shortcut":    "Alt+S",
	}})
	require.NoError(t, err)

	_, err = exec(t, p, ext, "commands.reset", jsonv.Array{"save-page"})
	require.NoError(t, err)

	result, _ := exec(t, p, ext, "commands.getAll", nil)
	wire := result.Data.([]map[string]any)
	assert.Equal(t, "Save the page", wire[0]["description"])
	assert.Equal(t, "Ctrl+Shift+S", wire[0]["shortcut"])

	action, ok := host.Bound("<Primary><Shift>s")
	require.True(t, ok)
	assert.Equal(t, "ext-1::save-page", action)

	_, altBound := host.Bound("<Alt>s")
	assert.False(t, altBound)
}

func TestUpdateUnknownCommand(t *testing.T) {
	p, _, _, _, ext := setup(t)

	_, err := exec(t, p, ext, "commands.update", jsonv.Array{jsonv.Object{"name": "ghost"}})
	var ce *types.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrInvalidArgument, ce.Kind)
}

func TestActivationRouting(t *testing.T) {
	host := newFakeHost()
	bus := &recorder{}
	ui := &fakeUI{}
	p := NewProvider(host, bus, ui, logging.NewNop())

	ext := &types.Extension{
		GUID: "ext-2",
		Commands: []types.CommandDefault{
			{Name: ExecuteBrowserAction},
			{Name: ExecutePageAction},
			{Name: "custom-jump"},
		},
	}
	p.Setup(ext)

	p.HandleAction("ext-2::" + ExecuteBrowserAction)
	p.HandleAction("ext-2::" + ExecutePageAction)
	p.HandleAction("ext-2::custom-jump")

	assert.Equal(t, []string{"ext-2"}, ui.popups)
	assert.Equal(t, []string{"ext-2"}, ui.pages)
	require.Len(t, bus.events, 1)
	assert.Equal(t, "commands.onCommand", bus.events[0].event)
	assert.Equal(t, "custom-jump", bus.events[0].payload)
	assert.Equal(t, "ext-2", bus.events[0].guid)
}

func TestTeardownUnregistersEverything(t *testing.T) {
	p, host, _, _, ext := setup(t)

	p.Teardown(ext)

	assert.Empty(t, host.byAction)
	assert.Empty(t, host.byAccel)

	_, err := exec(t, p, ext, "commands.getAll", nil)
	assert.Error(t, err, "registry is gone after teardown")
}

func TestUnknownMethodNotImplemented(t *testing.T) {
	p, _, _, _, ext := setup(t)

	_, err := exec(t, p, ext, "commands.execute", nil)
	var ce *types.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrNotImplemented, ce.Kind)
}
