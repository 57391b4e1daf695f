package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webfuse/extbridge/internal/collab/notify"
	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

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

func sender(guid string) *types.Sender {
	return &types.Sender{Extension: &types.Extension{
		GUID:        guid,
		Permissions: []string{"notifications"},
	}}
}

func setup() (*Provider, *notify.Surface, *recorder) {
	surface := notify.NewSurface(nil)
	bus := &recorder{}
	p := NewProvider(surface, bus, nil)
	surface.SetActionHandler(p.HandleAction)
	return p, surface, bus
}

func create(t *testing.T, p *Provider, guid string, args jsonv.Array) string {
	t.Helper()
	result, err := p.Execute(context.Background(), "notifications.create", args, sender(guid))
	require.NoError(t, err)
	return result.Data.(string)
}

func basicOptions() jsonv.Object {
	return jsonv.Object{"title": "Build done", "message": "All targets passed"}
}

func TestCreateGeneratesIDWhenOmitted(t *testing.T) {
	p, surface, _ := setup()

	localID := create(t, p, "ext-a", jsonv.Array{basicOptions()})
	assert.NotEmpty(t, localID)
	assert.NotContains(t, localID, "::", "caller sees the un-namespaced id")

	_, live := surface.Get("ext-a::" + localID)
	assert.True(t, live)
}

func TestCreateWithCallerID(t *testing.T) {
	p, surface, _ := setup()

	localID := create(t, p, "ext-a", jsonv.Array{"build-status", basicOptions()})
	assert.Equal(t, "build-status", localID)

	n, live := surface.Get("ext-a::build-status")
	require.True(t, live)
	assert.Equal(t, "Build done", n.Title)
}

func TestSameLocalIDAcrossExtensionsDoesNotCollide(t *testing.T) {
	p, surface, _ := setup()

	create(t, p, "ext-a", jsonv.Array{"status", basicOptions()})
	create(t, p, "ext-b", jsonv.Array{"status", jsonv.Object{"title": "Other", "message": "m"}})

	assert.Equal(t, 2, surface.Live())
	a, _ := surface.Get("ext-a::status")
	b, _ := surface.Get("ext-b::status")
	assert.Equal(t, "Build done", a.Title)
	assert.Equal(t, "Other", b.Title)

	// Clearing one extension's notification leaves the other's alone.
	_, err := p.Execute(context.Background(), "notifications.clear",
		jsonv.Array{"status"}, sender("ext-a"))
	require.NoError(t, err)
	assert.Equal(t, 1, surface.Live())
	_, live := surface.Get("ext-b::status")
	assert.True(t, live)
}

func TestRecreateUnderSameIDReplaces(t *testing.T) {
	p, surface, _ := setup()

	create(t, p, "ext-a", jsonv.Array{"status", basicOptions()})
	create(t, p, "ext-a", jsonv.Array{"status", jsonv.Object{"title": "Updated", "message": "m"}})

	assert.Equal(t, 1, surface.Live())
	n, _ := surface.Get("ext-a::status")
	assert.Equal(t, "Updated", n.Title)
}

func TestUpdateRequiresID(t *testing.T) {
	p, _, _ := setup()

	_, err := p.Execute(context.Background(), "notifications.update",
		jsonv.Array{basicOptions()}, sender("ext-a"))
	var ce *types.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrInvalidArgument, ce.Kind)
}

func TestCreateRejectsMoreThanTwoButtons(t *testing.T) {
	p, surface, _ := setup()

	options := basicOptions()
	options["buttons"] = []any{
		jsonv.Object{"title": "One"},
		jsonv.Object{"title": "Two"},
		jsonv.Object{"title": "Three"},
	}
	_, err := p.Execute(context.Background(), "notifications.create",
		jsonv.Array{options}, sender("ext-a"))
	var ce *types.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrInvalidArgument, ce.Kind)
	assert.Equal(t, 0, surface.Live())
}

func TestCreateRequiresTitle(t *testing.T) {
	p, _, _ := setup()

	_, err := p.Execute(context.Background(), "notifications.create",
		jsonv.Array{jsonv.Object{"message": "m"}}, sender("ext-a"))
	var ce *types.CallError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrInvalidArgument, ce.Kind)
}

func TestClearAlwaysSucceeds(t *testing.T) {
	p, surface, _ := setup()

	create(t, p, "ext-a", jsonv.Array{"status", basicOptions()})

	result, err := p.Execute(context.Background(), "notifications.clear",
		jsonv.Array{"status"}, sender("ext-a"))
	require.NoError(t, err)
	assert.Equal(t, true, result.Data)
	assert.Equal(t, 0, surface.Live())

	// Unknown ids report success too; the surface cannot confirm.
	result, err = p.Execute(context.Background(), "notifications.clear",
		jsonv.Array{"never-existed"}, sender("ext-a"))
	require.NoError(t, err)
	assert.Equal(t, true, result.Data)
}

func TestGetAllIsStructurallyEmpty(t *testing.T) {
	p, _, _ := setup()

	create(t, p, "ext-a", jsonv.Array{"status", basicOptions()})

	result, err := p.Execute(context.Background(), "notifications.getAll", nil, sender("ext-a"))
	require.NoError(t, err)
	assert.Empty(t, result.Data.(map[string]any))
}

func TestBodyClickBroadcastsOnClicked(t *testing.T) {
	p, surface, bus := setup()

	create(t, p, "ext-a", jsonv.Array{"status", basicOptions()})
	require.True(t, surface.Click("ext-a::status", DefaultButton))

	require.Len(t, bus.events, 1)
	assert.Equal(t, "ext-a", bus.events[0].guid)
	assert.Equal(t, "notifications.onClicked", bus.events[0].event)
	assert.Equal(t, "status", bus.events[0].payload)
}

func TestButtonClickBroadcastsIndex(t *testing.T) {
	p, surface, bus := setup()

	options := basicOptions()
	options["buttons"] = []any{jsonv.Object{"title": "Retry"}, jsonv.Object{"title": "Dismiss"}}
	create(t, p, "ext-a", jsonv.Array{"status", options})

	require.True(t, surface.Click("ext-a::status", 1))

	require.Len(t, bus.events, 1)
	assert.Equal(t, "notifications.onButtonClicked", bus.events[0].event)
	payload := bus.events[0].payload.(map[string]any)
	assert.Equal(t, "status", payload["notificationId"])
	assert.Equal(t, float64(1), payload["buttonIndex"])
}
