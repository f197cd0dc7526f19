package dto

// ContentRef points publishers at the media to publish.
type ContentRef struct {
	ContentID   string
	BlobKey     string
	PublicURL   string
	CoverURL    string
	ContentType string
	Size        int64
}

// PublishMetadata is the descriptive data sent alongside the media.
type PublishMetadata struct {
	Title       string
	Description string
	Tags        []string
	Privacy     string
	// Options are platform-native settings passed through verbatim.
	Options map[string]string
}

// Caption joins the title and description for platforms without a separate title field.
func (m PublishMetadata) Caption() string {
	switch {
	case m.Title == "":
		return m.Description
	case m.Description == "":
		return m.Title
	}
	return m.Title + "\n\n" + m.Description
}

type PublishResult struct {
	ExternalID string `json:"external_id"`
	URL        string `json:"url"`
}

// ProgressFunc receives a completion percentage between 0 and 100.
type ProgressFunc func(percent int)

// BlobInfo describes an opened blob.
type BlobInfo struct {
	ContentType string
	Size        int64
}
