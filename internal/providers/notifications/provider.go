package notifications

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/events"
	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/shared/id"
	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

// Surface is the notification-delivery collaborator. Sending under a
// live identifier replaces the displayed notification.
type Surface interface {
	Send(id string, n types.Notification) error
	Withdraw(id string)
}

const (
	idSep      = "::"
	maxButtons = 2
)

// DefaultButton is the activation index for a body click
const DefaultButton = -1

// Provider implements the notifications namespace. Identifiers handed to
// the surface are namespaced as guid::localId so two extensions creating
// the same local id never collide.
type Provider struct {
	surface Surface
	bus     events.Broadcaster
	newID   func() string
	logger  *logging.Logger
}

// NewProvider creates a notifications provider
func NewProvider(surface Surface, bus events.Broadcaster, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{
		surface: surface,
		bus:     bus,
		newID:   func() string { return id.NewNotificationID().String() },
		logger:  logger,
	}
}

// Definition returns namespace metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          types.NamespaceNotifications,
		Name:        "Notifications",
		Description: "Create and manage desktop notifications",
		Permission:  "notifications",
		Methods: []types.Method{
			{
				ID:          "notifications.create",
				Name:        "Create Notification",
				Description: "Display a notification, generating an id when omitted",
				Parameters: []types.Parameter{
					{Name: "notificationId", Type: "string"},
					{Name: "options", Type: "object", Description: "{title, message, buttons?}", Required: true},
				},
				Returns: "string",
			},
			{
				ID:          "notifications.update",
				Name:        "Update Notification",
				Description: "Replace a displayed notification under the same id",
				Parameters: []types.Parameter{
					{Name: "notificationId", Type: "string", Required: true},
					{Name: "options", Type: "object", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "notifications.clear",
				Name:        "Clear Notification",
				Parameters: []types.Parameter{
					{Name: "notificationId", Type: "string", Required: true},
				},
				Returns: "boolean",
			},
			{
				ID:          "notifications.getAll",
				Name:        "Get All Notifications",
				Description: "The surface exposes no enumeration; always empty",
				Returns:     "object",
			},
		},
	}
}

// Execute runs a notifications operation
func (p *Provider) Execute(ctx context.Context, method string, args jsonv.Array, sender *types.Sender) (*types.Result, error) {
	switch method {
	case "notifications.create":
		return p.create(args, sender, false)
	case "notifications.update":
		return p.create(args, sender, true)
	case "notifications.clear":
		return p.clear(args, sender)
	case "notifications.getAll":
		// The platform surface cannot enumerate; callers learn this
		// structurally rather than through an error.
		return types.OK(map[string]any{}), nil
	default:
		return nil, types.NotImplemented(method)
	}
}

// create handles both create and update; update additionally requires a
// non-empty caller-supplied id.
func (p *Provider) create(args jsonv.Array, sender *types.Sender, requireID bool) (*types.Result, error) {
	localID, options, err := splitCreateArgs(args)
	if err != nil {
		return nil, err
	}
	if requireID && localID == "" {
		return nil, types.InvalidArgument("missing notificationId")
	}
	if localID == "" {
		localID = p.newID()
	}

	n, err := buildNotification(options)
	if err != nil {
		return nil, err
	}

	if err := p.surface.Send(namespaced(sender.Extension.GUID, localID), *n); err != nil {
		return nil, types.CollaboratorError(err)
	}
	p.logger.Debug("notification delivered",
		zap.String("extension", sender.Extension.GUID),
		zap.String("id", localID))
	return types.OK(localID), nil
}

func (p *Provider) clear(args jsonv.Array, sender *types.Sender) (*types.Result, error) {
	localID, ok := jsonv.ArgString(args, 0)
	if !ok || localID == "" {
		return nil, types.InvalidArgument("missing notificationId")
	}
	// The surface gives no existence confirmation.
	p.surface.Withdraw(namespaced(sender.Extension.GUID, localID))
	return types.OK(true), nil
}

// HandleAction routes a surface activation back to the owning extension.
// A body click (buttonIndex -1) broadcasts onClicked; a button click
// broadcasts onButtonClicked with the index.
func (p *Provider) HandleAction(surfaceID string, buttonIndex int) {
	guid, localID, ok := strings.Cut(surfaceID, idSep)
	if !ok {
		return
	}
	if buttonIndex == DefaultButton {
		p.bus.Broadcast(guid, "notifications.onClicked", localID)
		return
	}
	p.bus.Broadcast(guid, "notifications.onButtonClicked", map[string]any{
		"notificationId": localID,
		"buttonIndex":    float64(buttonIndex),
	})
}

// splitCreateArgs accepts either (options) or (notificationId, options)
func splitCreateArgs(args jsonv.Array) (string, jsonv.Object, error) {
	if len(args) == 0 {
		return "", nil, types.InvalidArgument("missing options object")
	}
	if localID, ok := args[0].(string); ok {
		options, ok := jsonv.Arg(args, 1)
		if !ok {
			return "", nil, types.InvalidArgument("missing options object")
		}
		return localID, options, nil
	}
	options, ok := jsonv.Arg(args, 0)
	if !ok {
		return "", nil, types.InvalidArgument("missing options object")
	}
	return "", options, nil
}

func buildNotification(options jsonv.Object) (*types.Notification, error) {
	title, ok := jsonv.String(options, "title")
	if !ok || title == "" {
		return nil, types.InvalidArgument("missing title")
	}
	message, ok := jsonv.String(options, "message")
	if !ok {
		return nil, types.InvalidArgument("missing message")
	}

	n := &types.Notification{
		Title:   title,
		Message: message,
		IconURL: jsonv.StringOr(options, "iconUrl", ""),
	}

	buttons, ok := jsonv.ArrayAt(options, "buttons")
	if !ok {
		return n, nil
	}
	if len(buttons) > maxButtons {
		return nil, types.InvalidArgument("at most %d buttons are supported, got %d", maxButtons, len(buttons))
	}
	for i := range buttons {
		b, ok := jsonv.Arg(buttons, i)
		if !ok {
			return nil, types.InvalidArgument("button %d is not an object", i)
		}
		bTitle, ok := jsonv.String(b, "title")
		if !ok || bTitle == "" {
			return nil, types.InvalidArgument("button %d is missing a title", i)
		}
		n.Buttons = append(n.Buttons, types.NotificationButton{Title: bTitle})
	}
	return n, nil
}

func namespaced(guid, localID string) string {
	return guid + idSep + localID
}
