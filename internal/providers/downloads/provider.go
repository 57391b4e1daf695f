package downloads

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/webfuse/extbridge/internal/events"
	"github.com/webfuse/extbridge/internal/infrastructure/logging"
	"github.com/webfuse/extbridge/internal/permissions"
	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

// Manager is the download manager collaborator
type Manager interface {
	Dir() string
	All() []types.Download
	Get(id int32) (types.Download, bool)
	Start(ctx context.Context, opts types.DownloadOptions) (types.Download, error)
	Cancel(id int32)
	Pause(id int32) error
	Resume(id int32) error
	OpenFile(id int32) error
	ShowInFolder(id int32) error
	RemoveFile(id int32) error
	Erase(id int32)
	OnCreated(fn func(types.Download))
	OnChanged(fn func(types.Download))
	OnErased(fn func(id int32))
}

// Lister enumerates the currently loaded extensions
type Lister interface {
	All() []*types.Extension
}

// Provider implements the downloads namespace
type Provider struct {
	manager Manager
	tester  Tester
	logger  *logging.Logger
}

// NewProvider creates a downloads provider
func NewProvider(manager Manager, tester Tester, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Provider{manager: manager, tester: tester, logger: logger}
}

// BindEvents fans the manager's signals out to every loaded extension
// holding the downloads capability. Erasure carries the bare id; the
// other signals carry the record's wire projection.
func (p *Provider) BindEvents(lister Lister, bus events.Broadcaster) {
	p.manager.OnCreated(func(d types.Download) {
		p.fanOut(lister, bus, "downloads.onCreated", d.Wire())
	})
	p.manager.OnChanged(func(d types.Download) {
		p.fanOut(lister, bus, "downloads.onChanged", d.Wire())
	})
	p.manager.OnErased(func(id int32) {
		p.fanOut(lister, bus, "downloads.onErased", float64(id))
	})
}

func (p *Provider) fanOut(lister Lister, bus events.Broadcaster, event string, payload any) {
	for _, ext := range lister.All() {
		if ext.HasPermission("downloads") {
			bus.Broadcast(ext.GUID, event, payload)
		}
	}
}

// Definition returns namespace metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          types.NamespaceDownloads,
		Name:        "Downloads",
		Description: "Start, query, and manage downloads",
		Permission:  "downloads",
		Methods: []types.Method{
			{
				ID:          "downloads.download",
				Name:        "Download",
				Description: "Start a download and return its id immediately",
				Parameters: []types.Parameter{
					{Name: "options", Type: "object", Description: "{url, filename?, conflictAction?, saveAs?}", Required: true},
				},
				Returns: "number",
			},
			{
				ID:          "downloads.query",
				Name:        "Query Downloads",
				Description: "Return every record matching a query object",
				Parameters: []types.Parameter{
					{Name: "query", Type: "object", Description: "filter object", Required: true},
				},
				Returns: "array",
			},
			{
				ID:          "downloads.erase",
				Name:        "Erase Downloads",
				Description: "Remove every record matching a query object, returning their ids",
				Parameters: []types.Parameter{
					{Name: "query", Type: "object", Description: "filter object", Required: true},
				},
				Returns: "array",
			},
			{
				ID:          "downloads.cancel",
				Name:        "Cancel Download",
				Description: "Interrupt an active download",
				Parameters: []types.Parameter{
					{Name: "downloadId", Type: "number", Required: true},
				},
			},
			{
				ID:          "downloads.pause",
				Name:        "Pause Download",
				Parameters: []types.Parameter{
					{Name: "downloadId", Type: "number", Required: true},
				},
			},
			{
				ID:          "downloads.resume",
				Name:        "Resume Download",
				Parameters: []types.Parameter{
					{Name: "downloadId", Type: "number", Required: true},
				},
			},
			{
				ID:          "downloads.open",
				Name:        "Open Download",
				Description: "Open a completed download with the platform handler",
				Parameters: []types.Parameter{
					{Name: "downloadId", Type: "number", Required: true},
				},
			},
			{
				ID:          "downloads.show",
				Name:        "Show Download",
				Description: "Reveal a download in the file manager",
				Parameters: []types.Parameter{
					{Name: "downloadId", Type: "number", Required: true},
				},
			},
			{
				ID:          "downloads.removeFile",
				Name:        "Remove Downloaded File",
				Description: "Delete the file from disk, keeping the record",
				Parameters: []types.Parameter{
					{Name: "downloadId", Type: "number", Required: true},
				},
			},
		},
	}
}

// Execute runs a downloads operation
func (p *Provider) Execute(ctx context.Context, method string, args jsonv.Array, sender *types.Sender) (*types.Result, error) {
	switch method {
	case "downloads.download":
		return p.download(ctx, args, sender)
	case "downloads.query":
		return p.query(args)
	case "downloads.erase":
		return p.erase(args)
	case "downloads.cancel":
		return p.cancel(args)
	case "downloads.pause":
		return p.byID(args, p.manager.Pause)
	case "downloads.resume":
		return p.byID(args, p.manager.Resume)
	case "downloads.open":
		return p.byID(args, p.manager.OpenFile)
	case "downloads.show":
		return p.byID(args, p.manager.ShowInFolder)
	case "downloads.removeFile":
		return p.byID(args, p.manager.RemoveFile)
	default:
		return nil, types.NotImplemented(method)
	}
}

func (p *Provider) download(ctx context.Context, args jsonv.Array, sender *types.Sender) (*types.Result, error) {
	options, ok := jsonv.Arg(args, 0)
	if !ok {
		return nil, types.InvalidArgument("missing options object")
	}
	rawURL, ok := jsonv.String(options, "url")
	if !ok || rawURL == "" {
		return nil, types.InvalidArgument("missing url")
	}
	if !permissions.AllowedURL(sender.Extension, rawURL) {
		return nil, types.HostPermissionDenied(rawURL)
	}

	filename := jsonv.StringOr(options, "filename", "")
	if filename != "" {
		if err := p.checkContained(filename); err != nil {
			return nil, err
		}
	}

	conflict := types.ConflictAction(jsonv.StringOr(options, "conflictAction", string(types.ConflictUniquify)))
	switch conflict {
	case types.ConflictUniquify, types.ConflictOverwrite, types.ConflictPrompt:
	default:
		return nil, types.InvalidArgument("unknown conflictAction %q", conflict)
	}

	d, err := p.manager.Start(ctx, types.DownloadOptions{
		URL:            rawURL,
		Filename:       filename,
		ConflictAction: conflict,
		SaveAs:         jsonv.BoolOr(options, "saveAs", false),
		ExtensionGUID:  sender.Extension.GUID,
	})
	if err != nil {
		return nil, types.InvalidArgument("%v", err)
	}

	p.logger.Info("download started",
		zap.Int32("id", d.ID),
		zap.String("url", rawURL),
		zap.String("extension", sender.Extension.GUID))
	return types.OK(float64(d.ID)), nil
}

// checkContained rejects filenames that resolve outside the downloads
// directory, before the manager is ever invoked.
func (p *Provider) checkContained(filename string) error {
	if filepath.IsAbs(filename) {
		return types.InvalidArgument("filename %q must be relative", filename)
	}
	dir := p.manager.Dir()
	dest := filepath.Join(dir, filepath.Clean(filename))
	rel, err := filepath.Rel(dir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return types.InvalidArgument("filename %q escapes the downloads directory", filename)
	}
	return nil
}

func (p *Provider) query(args jsonv.Array) (*types.Result, error) {
	matched, err := p.run(args)
	if err != nil {
		return nil, err
	}
	wire := make([]map[string]any, 0, len(matched))
	for i := range matched {
		wire = append(wire, matched[i].Wire())
	}
	return types.OK(wire), nil
}

func (p *Provider) erase(args jsonv.Array) (*types.Result, error) {
	matched, err := p.run(args)
	if err != nil {
		return nil, err
	}
	ids := make([]float64, 0, len(matched))
	for i := range matched {
		p.manager.Erase(matched[i].ID)
		ids = append(ids, float64(matched[i].ID))
	}
	return types.OK(ids), nil
}

// run compiles the first argument into a predicate and applies it to a
// snapshot of the live record set.
func (p *Provider) run(args jsonv.Array) ([]types.Download, error) {
	q, ok := jsonv.Arg(args, 0)
	if !ok {
		// An absent query matches everything.
		q = jsonv.Object{}
	}
	pred, err := compile(q)
	if err != nil {
		return nil, err
	}
	return pred.apply(p.manager.All(), p.tester)
}

func (p *Provider) cancel(args jsonv.Array) (*types.Result, error) {
	id, err := downloadID(args)
	if err != nil {
		return nil, err
	}
	// Unknown ids no-op: the record may already be gone.
	p.manager.Cancel(id)
	return types.OK(nil), nil
}

// byID resolves the downloadId argument and applies op, mapping unknown
// ids and collaborator refusals to InvalidArgument.
func (p *Provider) byID(args jsonv.Array, op func(int32) error) (*types.Result, error) {
	id, err := downloadID(args)
	if err != nil {
		return nil, err
	}
	if _, ok := p.manager.Get(id); !ok {
		return nil, types.InvalidArgument("download %d not found", id)
	}
	if err := op(id); err != nil {
		return nil, types.InvalidArgument("%v", err)
	}
	return types.OK(nil), nil
}

func downloadID(args jsonv.Array) (int32, error) {
	if len(args) == 0 {
		return 0, types.InvalidArgument("missing downloadId")
	}
	f, ok := args[0].(float64)
	if !ok {
		return 0, types.InvalidArgument("downloadId must be a number")
	}
	return int32(f), nil
}
