package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// chatClient talks to the chat platform REST API with a bot token.
type chatClient struct {
	baseURL   string
	token     string
	userAgent string
	fileLimit int64
	client    *http.Client
}

var _ Sink = (*chatClient)(nil)

// NewChatClient creates a sink over the chat platform REST API. fileLimit
// is the platform's attachment size ceiling; oversized media is dropped at
// send time.
func NewChatClient(baseURL, token, userAgent string, fileLimit int64, client *http.Client) Sink {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &chatClient{
		baseURL:   baseURL,
		token:     token,
		userAgent: userAgent,
		fileLimit: fileLimit,
		client:    client,
	}
}

type wireMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func (c *chatClient) Send(ctx context.Context, channelID string, p Payload) (MessageRef, error) {
	body, contentType, err := c.encodeMessage(p)
	if err != nil {
		return MessageRef{}, err
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return MessageRef{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return MessageRef{}, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if err := c.statusError(resp); err != nil {
		return MessageRef{}, err
	}

	var msg wireMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return MessageRef{}, fmt.Errorf("failed to decode send response: %w", err)
	}

	return MessageRef{ChannelID: channelID, MessageID: msg.ID}, nil
}

func (c *chatClient) Edit(ctx context.Context, ref MessageRef, p Payload) error {
	payload, err := json.Marshal(map[string]string{"content": renderContent(p)})
	if err != nil {
		return fmt.Errorf("failed to encode edit payload: %w", err)
	}

	url := fmt.Sprintf("%s/channels/%s/messages/%s", c.baseURL, ref.ChannelID, ref.MessageID)
	req, err := http.NewRequestWithContext(ctx, "PATCH", url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	defer resp.Body.Close()

	return c.statusError(resp)
}

func (c *chatClient) Fetch(ctx context.Context, ref MessageRef) (*Message, error) {
	url := fmt.Sprintf("%s/channels/%s/messages/%s", c.baseURL, ref.ChannelID, ref.MessageID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, "")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	defer resp.Body.Close()

	if err := c.statusError(resp); err != nil {
		return nil, err
	}

	var msg wireMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	return &Message{Body: msg.Content}, nil
}

// encodeMessage builds the request body: plain JSON when the payload has no
// media, multipart with a payload_json part plus one part per attachment
// otherwise.
func (c *chatClient) encodeMessage(p Payload) (io.Reader, string, error) {
	content, err := json.Marshal(map[string]string{"content": renderContent(p)})
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode message payload: %w", err)
	}

	if len(p.Media) == 0 {
		return bytes.NewReader(content), "application/json", nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormField("payload_json")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create payload part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("failed to write payload part: %w", err)
	}

	attached := 0
	for _, m := range p.Media {
		if int64(len(m.Data)) > c.fileLimit {
			continue
		}
		part, err := w.CreateFormFile(fmt.Sprintf("files[%d]", attached), m.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(m.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write file part: %w", err)
		}
		attached++
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

func (c *chatClient) setHeaders(req *http.Request, contentType string) {
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
}

func (c *chatClient) statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}
}
