package bot

import "context"

// Attachment is the bot service's reference to an already-uploaded file.
// It is obtained once per conversation and replayed on every later turn.
type Attachment struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Name        string `json:"name"`
}

type Message struct {
	Role        string
	Content     string
	Attachments []Attachment
}

// Provider is the external bot capability: upload a file once, then send
// ordered role-tagged messages and receive the reply as a stream of text
// fragments. Both channels close when the stream ends.
type Provider interface {
	UploadFile(ctx context.Context, data []byte, filename, apiKey string) (Attachment, error)
	StreamQuery(ctx context.Context, messages []Message, apiKey string) (<-chan string, <-chan error)
}
