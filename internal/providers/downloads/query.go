package downloads

import (
	"sort"
	"strings"
	"time"

	"github.com/webfuse/extbridge/internal/shared/jsonv"
	"github.com/webfuse/extbridge/internal/types"
)

// Tester evaluates a regular expression against a subject string. The
// bridge delegates to a sandboxed script evaluator so extension-supplied
// patterns run with ECMA-262 semantics and no host access.
type Tester interface {
	Test(pattern, subject string) (bool, error)
}

// InterruptReason buckets the collaborator's failure strings into the
// categories extensions can filter on.
type InterruptReason string

const (
	ReasonUserCanceled  InterruptReason = "USER_CANCELED"
	ReasonNetworkFailed InterruptReason = "NETWORK_FAILED"
	ReasonServerFailed  InterruptReason = "SERVER_FAILED"
	ReasonFileFailed    InterruptReason = "FILE_FAILED"
)

// ClassifyError maps a raw interruption error string to its reason bucket
func ClassifyError(raw string) (InterruptReason, bool) {
	bucket, _, _ := strings.Cut(raw, ":")
	switch r := InterruptReason(strings.TrimSpace(bucket)); r {
	case ReasonUserCanceled, ReasonNetworkFailed, ReasonServerFailed, ReasonFileFailed:
		return r, true
	}
	return "", false
}

// predicate is the compiled form of one query object. It is built per
// request and never persisted.
type predicate struct {
	id    *int32
	state *types.DownloadState
	mime  *string

	danger *bool
	paused *bool
	exists *bool

	totalBytes        *int64
	totalBytesGreater *int64
	totalBytesLess    *int64

	// terms are lowercased free-text matchers over url+filename; a
	// leading "-" was stripped into negated.
	terms   []string
	negated []string

	filename *string
	url      *string

	filenameRegex *string
	urlRegex      *string

	startedBefore *time.Time
	startedAfter  *time.Time
	endedBefore   *time.Time
	endedAfter    *time.Time

	reason *InterruptReason

	orderBy []orderKey
	limit   int
}

type orderKey struct {
	field string
	desc  bool
}

// compile validates a query object into a predicate. Unknown enum values
// and malformed fields fail here, before any record is touched.
func compile(q jsonv.Object) (*predicate, error) {
	p := &predicate{limit: -1}

	if f, ok := jsonv.Float(q, "id"); ok {
		id := int32(f)
		p.id = &id
	}

	if s, ok := jsonv.String(q, "state"); ok {
		state := types.DownloadState(s)
		switch state {
		case types.DownloadInProgress, types.DownloadInterrupted, types.DownloadComplete:
			p.state = &state
		default:
			return nil, types.InvalidArgument("unknown download state %q", s)
		}
	}

	if m, ok := jsonv.String(q, "mime"); ok {
		p.mime = &m
	}

	p.danger = jsonv.OptBool(q, "danger")
	p.paused = jsonv.OptBool(q, "paused")
	p.exists = jsonv.OptBool(q, "exists")

	for key, dst := range map[string]**int64{
		"totalBytes":        &p.totalBytes,
		"totalBytesGreater": &p.totalBytesGreater,
		"totalBytesLess":    &p.totalBytesLess,
	} {
		if f, ok := jsonv.Float(q, key); ok {
			n := int64(f)
			*dst = &n
		}
	}

	for _, term := range jsonv.Strings(q, "query") {
		if term == "" || term == "-" {
			continue
		}
		if neg, ok := strings.CutPrefix(term, "-"); ok {
			p.negated = append(p.negated, strings.ToLower(neg))
		} else {
			p.terms = append(p.terms, strings.ToLower(term))
		}
	}

	if s, ok := jsonv.String(q, "filename"); ok {
		p.filename = &s
	}
	if s, ok := jsonv.String(q, "url"); ok {
		p.url = &s
	}
	if s, ok := jsonv.String(q, "filenameRegex"); ok {
		p.filenameRegex = &s
	}
	if s, ok := jsonv.String(q, "urlRegex"); ok {
		p.urlRegex = &s
	}

	for key, dst := range map[string]**time.Time{
		"startedBefore": &p.startedBefore,
		"startedAfter":  &p.startedAfter,
		"endedBefore":   &p.endedBefore,
		"endedAfter":    &p.endedAfter,
	} {
		t, ok, err := timeBound(q, key)
		if err != nil {
			return nil, err
		}
		if ok {
			*dst = &t
		}
	}

	if s, ok := jsonv.String(q, "error"); ok {
		r := InterruptReason(s)
		switch r {
		case ReasonUserCanceled, ReasonNetworkFailed, ReasonServerFailed, ReasonFileFailed:
			p.reason = &r
		default:
			return nil, types.InvalidArgument("unknown interrupt reason %q", s)
		}
	}

	for _, field := range jsonv.Strings(q, "orderBy") {
		name, desc := field, false
		if stripped, ok := strings.CutPrefix(field, "-"); ok {
			name, desc = stripped, true
		}
		if !orderable(name) {
			return nil, types.InvalidArgument("cannot order by %q", field)
		}
		p.orderBy = append(p.orderBy, orderKey{field: name, desc: desc})
	}

	if n, ok := jsonv.Int(q, "limit"); ok {
		if n < 0 {
			return nil, types.InvalidArgument("negative limit %d", n)
		}
		p.limit = int(n)
	}

	return p, nil
}

// timeBound reads a time filter given either as RFC 3339 text or as
// milliseconds since the epoch.
func timeBound(q jsonv.Object, key string) (time.Time, bool, error) {
	v, present := q[key]
	if !present {
		return time.Time{}, false, nil
	}
	switch raw := v.(type) {
	case string:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, false, types.InvalidArgument("malformed %s %q", key, raw)
		}
		return t, true, nil
	case float64:
		return time.UnixMilli(int64(raw)), true, nil
	default:
		return time.Time{}, false, types.InvalidArgument("malformed %s", key)
	}
}

// match reports whether one record survives the predicate. Checks run
// cheapest first and short-circuit on the first failure; the sandboxed
// regex tester is only consulted when a regex filter was supplied.
func (p *predicate) match(d *types.Download, tester Tester) (bool, error) {
	if p.id != nil && d.ID != *p.id {
		return false, nil
	}
	if p.danger != nil && d.Danger != *p.danger {
		return false, nil
	}
	if p.paused != nil && d.Paused != *p.paused {
		return false, nil
	}
	if p.exists != nil && d.Exists != *p.exists {
		return false, nil
	}
	if p.mime != nil && d.ContentType != *p.mime {
		return false, nil
	}
	if p.state != nil && d.State != *p.state {
		return false, nil
	}
	if p.totalBytes != nil && d.TotalBytes != *p.totalBytes {
		return false, nil
	}
	// The comparator bounds apply to the bytes actually received, so an
	// in-progress record is judged by its live count.
	if p.totalBytesGreater != nil && d.BytesReceived <= *p.totalBytesGreater {
		return false, nil
	}
	if p.totalBytesLess != nil && d.BytesReceived >= *p.totalBytesLess {
		return false, nil
	}

	if len(p.terms) > 0 || len(p.negated) > 0 {
		haystack := strings.ToLower(d.URL) + "\x00" + strings.ToLower(d.Filename)
		for _, term := range p.terms {
			if !strings.Contains(haystack, term) {
				return false, nil
			}
		}
		for _, term := range p.negated {
			if strings.Contains(haystack, term) {
				return false, nil
			}
		}
	}

	if p.filename != nil && d.Filename != *p.filename {
		return false, nil
	}
	if p.url != nil && d.URL != *p.url {
		return false, nil
	}

	if p.filenameRegex != nil {
		ok, err := tester.Test(*p.filenameRegex, d.Filename)
		if err != nil {
			return false, types.InvalidArgument("filenameRegex: %v", err)
		}
		if !ok {
			return false, nil
		}
	}
	if p.urlRegex != nil {
		ok, err := tester.Test(*p.urlRegex, d.URL)
		if err != nil {
			return false, types.InvalidArgument("urlRegex: %v", err)
		}
		if !ok {
			return false, nil
		}
	}

	if p.startedBefore != nil && !d.StartTime.Before(*p.startedBefore) {
		return false, nil
	}
	if p.startedAfter != nil && !d.StartTime.After(*p.startedAfter) {
		return false, nil
	}
	if p.endedBefore != nil && (!d.HasEndTime || !d.EndTime.Before(*p.endedBefore)) {
		return false, nil
	}
	if p.endedAfter != nil && (!d.HasEndTime || !d.EndTime.After(*p.endedAfter)) {
		return false, nil
	}

	if p.reason != nil {
		if d.State != types.DownloadInterrupted {
			return false, nil
		}
		got, ok := ClassifyError(d.Error)
		if !ok || got != *p.reason {
			return false, nil
		}
	}

	return true, nil
}

// apply runs the predicate over a snapshot, then orders and truncates
func (p *predicate) apply(records []types.Download, tester Tester) ([]types.Download, error) {
	out := make([]types.Download, 0, len(records))
	for i := range records {
		ok, err := p.match(&records[i], tester)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, records[i])
		}
	}

	if len(p.orderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, key := range p.orderBy {
				c := compareField(&out[i], &out[j], key.field)
				if c == 0 {
					continue
				}
				if key.desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if p.limit >= 0 && len(out) > p.limit {
		out = out[:p.limit]
	}
	return out, nil
}

func orderable(field string) bool {
	switch field {
	case "id", "url", "filename", "state", "mime",
		"startTime", "endTime", "bytesReceived", "totalBytes":
		return true
	}
	return false
}

func compareField(a, b *types.Download, field string) int {
	switch field {
	case "id":
		return int(a.ID - b.ID)
	case "url":
		return strings.Compare(a.URL, b.URL)
	case "filename":
		return strings.Compare(a.Filename, b.Filename)
	case "state":
		return strings.Compare(string(a.State), string(b.State))
	case "mime":
		return strings.Compare(a.ContentType, b.ContentType)
	case "startTime":
		return a.StartTime.Compare(b.StartTime)
	case "endTime":
		return a.EndTime.Compare(b.EndTime)
	case "bytesReceived":
		return compareInt64(a.BytesReceived, b.BytesReceived)
	case "totalBytes":
		return compareInt64(a.TotalBytes, b.TotalBytes)
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
