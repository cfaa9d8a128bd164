package messages

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadRequestRoundTrip(t *testing.T) {
	// Supergroup ids sit outside int32 range and must survive unchanged.
	in := DownloadRequest{
		Received:    MessageRef{ChatID: -1001234567890123, MessageID: 42},
		Placeholder: MessageRef{ChatID: -1001234567890123, MessageID: 43},
		Source:      Source{Kind: SourceLink, Link: "https://example.com/cat.webm"},
	}

	body, err := json.Marshal(in)
	require.NoError(t, err)

	var out DownloadRequest
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, in, out)
}

func TestUploadRequestRoundTrip(t *testing.T) {
	in := UploadRequest{
		Received:      MessageRef{ChatID: 7, MessageID: 1},
		Placeholder:   MessageRef{ChatID: 7, MessageID: 2},
		InputPath:     "/tmp/a.webm",
		OutputPath:    "/tmp/b.mp4",
		ThumbnailPath: "/tmp/c.jpg",
	}

	body, err := json.Marshal(in)
	require.NoError(t, err)

	var out UploadRequest
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, in, out)
}

func TestSourceDescribe(t *testing.T) {
	assert.Equal(t, "https://x/v.webm", Source{Kind: SourceLink, Link: "https://x/v.webm"}.Describe())
	assert.Equal(t, "clip.webm", Source{Kind: SourceDocument, FileID: "f1", Name: "clip.webm"}.Describe())
	assert.Equal(t, "your file", Source{Kind: SourceVideo, FileID: "f2"}.Describe())
}

func TestCleanupRequestPaths(t *testing.T) {
	assert.Nil(t, CleanupRequest{}.Paths())
	assert.Equal(t, []string{"/tmp/a.webm"}, CleanupRequest{InputPath: "/tmp/a.webm"}.Paths())
	assert.Equal(t,
		[]string{"/tmp/a.webm", "/tmp/b.mp4", "/tmp/c.jpg"},
		CleanupRequest{InputPath: "/tmp/a.webm", OutputPath: "/tmp/b.mp4", ThumbnailPath: "/tmp/c.jpg"}.Paths(),
	)
}
