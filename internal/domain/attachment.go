package domain

// Attachment is the metadata of a file attached to a platform message.
// It only lives for the duration of a single relay.
type Attachment struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}
