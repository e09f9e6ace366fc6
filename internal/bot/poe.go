package bot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type PoeProvider struct {
	BaseURL   string
	UploadURL string
	BotName   string
	Client    *http.Client
}

func NewPoeProvider(baseURL, uploadURL, botName string) *PoeProvider {
	if baseURL == "" {
		baseURL = "https://api.poe.com"
	}
	if uploadURL == "" {
		uploadURL = "https://www.quora.com/poe_api/file_upload"
	}
	if botName == "" {
		botName = "GPT-5.2-Instant"
	}
	return &PoeProvider{
		BaseURL:   baseURL,
		UploadURL: uploadURL,
		BotName:   botName,
		Client:    &http.Client{Timeout: 90 * time.Second},
	}
}

type poeMsg struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type poeQueryReq struct {
	Version string   `json:"version"`
	Type    string   `json:"type"`
	Query   []poeMsg `json:"query"`
}

type poeStreamEvent struct {
	Text       string `json:"text"`
	AllowRetry bool   `json:"allow_retry"`
}

// UploadFile pushes the raw bytes to the Poe content-delivery endpoint and
// returns the reusable attachment reference.
func (p *PoeProvider) UploadFile(ctx context.Context, data []byte, filename, apiKey string) (Attachment, error) {
	if p.Client == nil {
		return Attachment{}, errors.New("poe: http client is nil")
	}
	if strings.TrimSpace(apiKey) == "" {
		return Attachment{}, errors.New("poe: api key is required")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return Attachment{}, err
	}
	if _, err := part.Write(data); err != nil {
		return Attachment{}, err
	}
	if err := w.Close(); err != nil {
		return Attachment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.UploadURL, &body)
	if err != nil {
		return Attachment{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return Attachment{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Attachment{}, fmt.Errorf("poe upload: %s", msg)
	}

	var att Attachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return Attachment{}, err
	}
	if att.URL == "" {
		return Attachment{}, errors.New("poe upload: empty attachment url")
	}
	return att, nil
}

// StreamQuery sends the full ordered message list and streams reply text
// fragments via SSE. Both channels close when the stream ends.
func (p *PoeProvider) StreamQuery(ctx context.Context, messages []Message, apiKey string) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		if p.Client == nil {
			errs <- errors.New("poe: http client is nil")
			return
		}
		if strings.TrimSpace(apiKey) == "" {
			errs <- errors.New("poe: api key is required")
			return
		}

		reqBody := poeQueryReq{
			Version: "1.0",
			Type:    "query",
			Query: func() []poeMsg {
				out := make([]poeMsg, 0, len(messages))
				for _, m := range messages {
					out = append(out, poeMsg{Role: m.Role, Content: m.Content, Attachments: m.Attachments})
				}
				return out
			}(),
		}

		b, err := json.Marshal(reqBody)
		if err != nil {
			errs <- err
			return
		}

		url := fmt.Sprintf("%s/bot/%s", strings.TrimRight(p.BaseURL, "/"), p.BotName)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
		if err != nil {
			errs <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		// streams may outlive the default request timeout; use a per-call
		// copy with no deadline so p.Client stays untouched for concurrent
		// callers. ctx still bounds the stream.
		client := p.Client
		if client.Timeout != 0 {
			streamClient := *client
			streamClient.Timeout = 0
			client = &streamClient
		}

		resp, err := client.Do(req)
		if err != nil {
			errs <- err
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
			msg := strings.TrimSpace(string(raw))
			if msg == "" {
				msg = fmt.Sprintf("status %d", resp.StatusCode)
			}
			errs <- fmt.Errorf("poe: %s", msg)
			return
		}

		sc := bufio.NewScanner(resp.Body)
		buf := make([]byte, 0, 64*1024)
		sc.Buffer(buf, 2*1024*1024)

		event := ""
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			switch {
			case line == "":
				event = ""
			case strings.HasPrefix(line, "event:"):
				event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
				switch event {
				case "text":
					var decoded poeStreamEvent
					if err := json.Unmarshal([]byte(data), &decoded); err != nil {
						errs <- err
						return
					}
					if decoded.Text != "" {
						chunks <- decoded.Text
					}
				case "error":
					var decoded poeStreamEvent
					if err := json.Unmarshal([]byte(data), &decoded); err != nil {
						errs <- err
						return
					}
					errs <- fmt.Errorf("poe: %s", decoded.Text)
					return
				case "done":
					return
				}
			}
		}

		if err := sc.Err(); err != nil {
			errs <- err
			return
		}
	}()

	return chunks, errs
}
