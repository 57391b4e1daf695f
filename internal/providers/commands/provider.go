package commands

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/events"
	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

// Reserved command names handled by the bridge itself rather than
// broadcast to the extension.
const (
	ExecuteBrowserAction = "_execute_browser_action"
	ExecutePageAction    = "_execute_page_action"
)

// actionSep joins an extension GUID and command name into a host action
// name. GUIDs never contain it, so the composition reverses cleanly.
const actionSep = "::"

// Host is the accelerator/action host collaborator
type Host interface {
	Bound(accelerator string) (string, bool)
	Register(action, accelerator string) error
	Unregister(action string)
}

// UI opens the extension's primary UI surfaces for the reserved commands
type UI interface {
	OpenActionPopup(extensionGUID string)
	OpenPageAction(extensionGUID string)
}

// Provider implements the commands namespace: the per-extension command
// registry with accelerator conflict resolution.
type Provider struct {
	host   Host
	bus    events.Broadcaster
	ui     UI
	logger *logging.Logger

	mu    sync.Mutex
	table map[string]*registry
}

// registry holds one extension's command state. Its mutex serializes
// mutations so concurrent update/reset calls for the same extension
// cannot interleave accelerator operations.
type registry struct {
	mu       sync.Mutex
	defaults []types.CommandDefault
	active   map[string]*types.Command
	order    []string
}

// NewProvider creates a commands provider
func NewProvider(host Host, bus events.Broadcaster, ui UI, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{
		host:   host,
		bus:    bus,
		ui:     ui,
		logger: logger,
		table:  make(map[string]*registry),
	}
}

// Definition returns namespace metadata. No capability gate: commands are
// declared structurally in the manifest.
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          types.NamespaceCommands,
		Name:        "Commands",
		Description: "Named commands with optional global keyboard shortcuts",
		Methods: []types.Method{
			{
				ID:          "commands.getAll",
				Name:        "Get All Commands",
				Description: "List the extension's active commands",
				Returns:     "array",
			},
			{
				ID:          "commands.update",
				Name:        "Update Command",
				Description: "Change a command's description or shortcut",
				Parameters: []types.Parameter{
					{Name: "detail", Type: "object", Description: "{name, description?, shortcut?}", Required: true},
				},
				Returns: "null",
			},
			{
				ID:          "commands.reset",
				Name:        "Reset Command",
				Description: "Restore a command to its manifest default",
				Parameters: []types.Parameter{
					{Name: "name", Type: "string", Description: "Command name", Required: true},
				},
				Returns: "null",
			},
		},
		Events: []string{"commands.onCommand"},
	}
}

// Setup seeds the active table from manifest defaults and registers
// accelerators. Wire it to the extension manager's load hook.
func (p *Provider) Setup(ext *types.Extension) {
	reg := &registry{
		defaults: ext.Commands,
		active:   make(map[string]*types.Command),
	}

	for _, def := range ext.Commands {
		cmd := &types.Command{
			Name:        def.Name,
			Description: def.Description,
			Shortcut:    def.Shortcut,
		}
		reg.active[def.Name] = cmd
		reg.order = append(reg.order, def.Name)
		p.bind(ext.GUID, cmd)
	}

	p.mu.Lock()
	p.table[ext.GUID] = reg
	p.mu.Unlock()
}

// Teardown unregisters every action. Wire it to the unload hook.
func (p *Provider) Teardown(ext *types.Extension) {
	p.mu.Lock()
	reg, ok := p.table[ext.GUID]
	delete(p.table, ext.GUID)
	p.mu.Unlock()
	if !ok {
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	for _, name := range reg.order {
		p.host.Unregister(actionName(ext.GUID, name))
	}
}

// HandleAction routes a host action activation. Reserved names open the
// extension's UI surface; everything else broadcasts onCommand.
func (p *Provider) HandleAction(action string) {
	guid, name, ok := strings.Cut(action, actionSep)
	if !ok {
		return
	}
	switch name {
	case ExecuteBrowserAction:
		if p.ui != nil {
			p.ui.OpenActionPopup(guid)
		}
	case ExecutePageAction:
		if p.ui != nil {
			p.ui.OpenPageAction(guid)
		}
	default:
		p.bus.Broadcast(guid, "commands.onCommand", name)
	}
}

// Execute runs a commands operation
func (p *Provider) Execute(ctx context.Context, method string, args jsonv.Array, sender *types.Sender) (*types.Result, error) {
	reg := p.registryFor(sender.Extension.GUID)
	if reg == nil {
		return nil, types.InvalidArgument("extension %s has no command registry", sender.Extension.GUID)
	}

	switch method {
	case "commands.getAll":
		return p.getAll(reg), nil
	case "commands.update":
		return p.update(reg, sender.Extension.GUID, args)
	case "commands.reset":
		return p.reset(reg, sender.Extension.GUID, args)
	default:
		return nil, types.NotImplemented(method)
	}
}

func (p *Provider) getAll(reg *registry) *types.Result {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	wire := make([]map[string]any, 0, len(reg.order))
	for _, name := range reg.order {
		wire = append(wire, reg.active[name].Wire())
	}
	return types.OK(wire)
}

func (p *Provider) update(reg *registry, guid string, args jsonv.Array) (*types.Result, error) {
	detail, ok := jsonv.Arg(args, 0)
	if !ok {
		return nil, types.InvalidArgument("missing detail object")
	}
	name, ok := jsonv.String(detail, "name")
	if !ok || name == "" {
		return nil, types.InvalidArgument("missing command name")
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	cmd, ok := reg.active[name]
	if !ok {
		return nil, types.InvalidArgument("no such command %q", name)
	}

	if desc, ok := jsonv.String(detail, "description"); ok {
		cmd.Description = desc
	}

	shortcut, present := jsonv.String(detail, "shortcut")
	if !present {
		return types.OK(nil), nil
	}

	// Validate before touching the existing binding, so a failed update
	// leaves the command exactly as it was.
	if shortcut != "" {
		if _, err := translateShortcut(shortcut); err != nil {
			return nil, types.InvalidArgument("%v", err)
		}
	}

	p.host.Unregister(actionName(guid, name))
	cmd.Accelerator = ""
	cmd.Shortcut = shortcut
	if shortcut == "" {
		// Keep an unbound action so activation still routes.
		p.host.Register(actionName(guid, name), "")
		return types.OK(nil), nil
	}
	p.bind(guid, cmd)
	return types.OK(nil), nil
}

func (p *Provider) reset(reg *registry, guid string, args jsonv.Array) (*types.Result, error) {
	name, ok := jsonv.ArgString(args, 0)
	if !ok || name == "" {
		return nil, types.InvalidArgument("missing command name")
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	cmd, ok := reg.active[name]
	if !ok {
		return nil, types.InvalidArgument("no such command %q", name)
	}

	var def *types.CommandDefault
	for i := range reg.defaults {
		if reg.defaults[i].Name == name {
			def = &reg.defaults[i]
			break
		}
	}
	if def == nil {
		return nil, types.InvalidArgument("no manifest default for %q", name)
	}

	p.host.Unregister(actionName(guid, name))
	cmd.Description = def.Description
	cmd.Shortcut = def.Shortcut
	cmd.Accelerator = ""
	p.bind(guid, cmd)
	return types.OK(nil), nil
}

// bind translates a command's shortcut and applies the registration
// policy: an accelerator already bound to any action is left alone and
// the command ends up unbound.
func (p *Provider) bind(guid string, cmd *types.Command) {
	action := actionName(guid, cmd.Name)

	if cmd.Shortcut == "" {
		p.host.Register(action, "")
		return
	}

	accel, err := translateShortcut(cmd.Shortcut)
	if err != nil {
		p.logger.Warn("shortcut translation failed",
			zap.String("extension", guid),
			zap.String("command", cmd.Name),
			zap.String("shortcut", cmd.Shortcut),
			zap.Error(err),
		)
		p.host.Register(action, "")
		return
	}

	if holder, taken := p.host.Bound(accel); taken {
		p.logger.Info("accelerator already bound, keeping existing binding",
			zap.String("accelerator", accel),
			zap.String("holder", holder),
			zap.String("command", cmd.Name),
		)
		p.host.Register(action, "")
		return
	}

	if err := p.host.Register(action, accel); err != nil {
		p.host.Register(action, "")
		return
	}
	cmd.Accelerator = accel
}

func (p *Provider) registryFor(guid string) *registry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table[guid]
}

func actionName(guid, command string) string {
	return guid + actionSep + command
}
