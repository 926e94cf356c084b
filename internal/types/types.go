package types

// RawExtraction holds the fields read from a rendered post page.
// Missing fields are empty, never nil.
type RawExtraction struct {
	MediaURLs   []string `json:"media_urls"`
	RawText     string   `json:"raw_text"`
	PublishedAt string   `json:"published_at"`
}

// Record is the canonical form of a post handed to the store
type Record struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Username    string   `json:"username"`
	SourceURL   string   `json:"source_url"`
	AuthorURL   string   `json:"author_url"`
	Tags        []string `json:"tags"`
	PublishedAt string   `json:"published_at"`
	MediaURLs   []string `json:"media_urls"`
}

// Media is a downloaded media item ready for upload
type Media struct {
	URL         string
	Filename    string
	ContentType string
	Data        []byte
}

// MediaFailure reports a media item that could not be attached
type MediaFailure struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// PublishResult is returned once a record has been created in the store.
// FailedMedia lists attachments that did not make it; the record stays.
type PublishResult struct {
	RecordID    string         `json:"record_id"`
	Attached    int            `json:"attached"`
	FailedMedia []MediaFailure `json:"failed_media"`
}

// AddFailure records a media item that could not be attached
func (r *PublishResult) AddFailure(url string, err error) {
	r.FailedMedia = append(r.FailedMedia, MediaFailure{URL: url, Error: err.Error()})
}
