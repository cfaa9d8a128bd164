// Package messages defines the payloads passed between pipeline stages.
// Every record is immutable once constructed; a stage that needs to change
// one builds the next stage's message instead.
package messages

// MessageRef points at one Telegram message. Chat ids are int64 because
// supergroup ids exceed int32 range.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

func (r MessageRef) Zero() bool { return r.ChatID == 0 && r.MessageID == 0 }

// SourceKind tags where the submitted video lives.
type SourceKind string

const (
	SourceLink     SourceKind = "link"
	SourceVideo    SourceKind = "video"
	SourceDocument SourceKind = "document"
)

// Source describes the submitted video. Exactly one of Link or FileID is
// meaningful, selected by Kind.
type Source struct {
	Kind   SourceKind `json:"kind"`
	Link   string     `json:"link,omitempty"`
	FileID string     `json:"file_id,omitempty"`
	Name   string     `json:"name,omitempty"`
}

// Describe returns the user-facing identifier of the source, used to prefix
// failure notices.
func (s Source) Describe() string {
	if s.Kind == SourceLink {
		return s.Link
	}
	if s.Name != "" {
		return s.Name
	}
	return "your file"
}

// DownloadRequest is produced by the inbound-update handler and consumed by
// the Downloader stage.
type DownloadRequest struct {
	Received    MessageRef `json:"received"`
	Placeholder MessageRef `json:"placeholder"`
	Source      Source     `json:"source"`
}

// ConvertRequest is produced by the Downloader on successful download.
type ConvertRequest struct {
	Received    MessageRef `json:"received"`
	Placeholder MessageRef `json:"placeholder"`
	InputPath   string     `json:"input_path"`
}

// UploadRequest is produced by the Converter after transcode and thumbnail
// extraction. InputPath travels along only so the Uploader can route it to
// cleanup.
type UploadRequest struct {
	Received      MessageRef `json:"received"`
	Placeholder   MessageRef `json:"placeholder"`
	InputPath     string     `json:"input_path"`
	OutputPath    string     `json:"output_path"`
	ThumbnailPath string     `json:"thumbnail_path"`
}

// CleanupRequest names up to three temp artifacts to reclaim. Empty string
// means the artifact was never created.
type CleanupRequest struct {
	InputPath     string `json:"input_path,omitempty"`
	OutputPath    string `json:"output_path,omitempty"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
}

// Paths returns the non-empty artifact paths.
func (c CleanupRequest) Paths() []string {
	var out []string
	for _, p := range []string{c.InputPath, c.OutputPath, c.ThumbnailPath} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
