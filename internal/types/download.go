package types

import "time"

// DownloadState is the lifecycle state of a download record
type DownloadState string

const (
	DownloadInProgress  DownloadState = "in_progress"
	DownloadInterrupted DownloadState = "interrupted"
	DownloadComplete    DownloadState = "complete"
)

// ConflictAction selects destination behavior when the target file exists
type ConflictAction string

const (
	ConflictUniquify  ConflictAction = "uniquify"
	ConflictOverwrite ConflictAction = "overwrite"
	ConflictPrompt    ConflictAction = "prompt"
)

// Download is the bridge's read view of a manager-owned download record.
// ID is monotonically assigned and unique for the process lifetime.
type Download struct {
	ID            int32         `json:"id"`
	URL           string        `json:"url"`
	Filename      string        `json:"filename"`
	State         DownloadState `json:"state"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time,omitempty"`
	HasEndTime    bool          `json:"has_end_time"`
	BytesReceived int64         `json:"bytes_received"`
	TotalBytes    int64         `json:"total_bytes"`
	ContentType   string        `json:"content_type"`
	Paused        bool          `json:"paused"`
	Exists        bool          `json:"exists"`
	Danger        bool          `json:"danger"`
	// Error holds the collaborator's failure string when interrupted.
	Error string `json:"error,omitempty"`
	// ExtensionGUID identifies the initiating extension, if any.
	ExtensionGUID string `json:"extension_guid,omitempty"`
}

// Wire returns the JSON projection sent back to extension scripts
func (d *Download) Wire() map[string]any {
	w := map[string]any{
		"id":            float64(d.ID),
		"url":           d.URL,
		"filename":      d.Filename,
		"state":         string(d.State),
		"startTime":     d.StartTime.UTC().Format(time.RFC3339),
		"bytesReceived": float64(d.BytesReceived),
		"totalBytes":    float64(d.TotalBytes),
		"mime":          d.ContentType,
		"paused":        d.Paused,
		"exists":        d.Exists,
		"danger":        d.Danger,
	}
	if d.HasEndTime {
		w["endTime"] = d.EndTime.UTC().Format(time.RFC3339)
	}
	if d.Error != "" {
		w["error"] = d.Error
	}
	if d.ExtensionGUID != "" {
		w["byExtensionId"] = d.ExtensionGUID
	}
	return w
}

// DownloadOptions are the validated inputs for starting a download
type DownloadOptions struct {
	URL            string
	Filename       string
	ConflictAction ConflictAction
	SaveAs         bool
	ExtensionGUID  string
}
