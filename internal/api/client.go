package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	statusSuccess = "success"

	// RequestIDHeader carries the per-call correlation id.
	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 32 << 20
)

const (
	msgListFailed  = "Failed to fetch documents"
	msgUnexpected  = "Unexpected response from the document service"
	msgUnreachable = "Network error: unable to reach the document service"
	msgCancelled   = "Request cancelled"
	msgMalformed   = "Invalid response from the document service"
)

var validate = validator.New()

// Client talks to the document service over HTTP+JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

var _ Service = (*Client)(nil)

// NewClient creates a client rooted at baseURL (e.g. http://localhost:8000/api).
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: log,
	}
}

// envelope is the status discriminator every response carries.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type listResponse struct {
	Documents  []Document  `json:"documents"`
	Statistics *Statistics `json:"statistics"`
}

type chatHistoryResponse struct {
	ChatHistory []ChatEntry `json:"chat_history"`
}

// ListDocuments fetches all documents and the server's statistics.
func (c *Client) ListDocuments(ctx context.Context) (DocumentList, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/documents/", nil)
	if err != nil {
		return DocumentList{}, err
	}
	var out listResponse
	if err := c.do(req, &out, msgListFailed); err != nil {
		return DocumentList{}, err
	}
	if out.Documents == nil {
		out.Documents = []Document{}
	}
	return DocumentList{Documents: out.Documents, Statistics: out.Statistics}, nil
}

// UploadDocument sends the file as multipart field "file".
func (c *Client) UploadDocument(ctx context.Context, upload Upload) (*UploadAck, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(upload.Filename)))
	h.Set("Content-Type", contentType)

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, upload.Body); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload/", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var ack UploadAck
	if err := c.do(req, &ack, msgUnexpected); err != nil {
		return nil, err
	}
	return &ack, nil
}

// DeleteDocument removes a document and everything the server derived from it.
func (c *Client) DeleteDocument(ctx context.Context, id DocumentID) error {
	req, err := c.newJSONRequest(ctx, http.MethodDelete, "/documents/"+url.PathEscape(id.String())+"/delete/", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil, msgUnexpected)
}

// FetchChatHistory returns the document's chat history, newest first.
func (c *Client) FetchChatHistory(ctx context.Context, id DocumentID) ([]ChatEntry, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/documents/"+url.PathEscape(id.String())+"/chat-history/", nil)
	if err != nil {
		return nil, err
	}
	var out chatHistoryResponse
	if err := c.do(req, &out, msgUnexpected); err != nil {
		return nil, err
	}
	if out.ChatHistory == nil {
		out.ChatHistory = []ChatEntry{}
	}
	return out.ChatHistory, nil
}

// AskQuestion submits a question about one document.
func (c *Client) AskQuestion(ctx context.Context, ask AskRequest) (*Answer, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/ask/", ask)
	if err != nil {
		return nil, err
	}
	var answer Answer
	if err := c.do(req, &answer, msgUnexpected); err != nil {
		return nil, err
	}
	if err := validate.Struct(&answer); err != nil {
		c.log.Warn("answer outside contract", "err", err, "document_id", ask.DocumentID)
		return nil, &Error{Kind: KindApplication, Message: msgMalformed, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	if ask.NumChunks > 0 && len(answer.Sources) > ask.NumChunks {
		c.log.Warn("answer outside contract", "sources", len(answer.Sources), "num_chunks", ask.NumChunks, "document_id", ask.DocumentID)
		return nil, &Error{Kind: KindApplication, Message: msgMalformed,
			Err: fmt.Errorf("%w: %d sources for num_chunks %d", ErrMalformedResponse, len(answer.Sources), ask.NumChunks)}
	}
	return &answer, nil
}

// Health reports whether the service answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/health/", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil, msgUnexpected)
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do executes req and checks both layers: HTTP status, then the payload's
// status discriminator. On success the body is decoded into out (if non-nil).
func (c *Client) do(req *http.Request, out any, fallback string) error {
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)

	log := c.log.With("method", req.Method, "path", req.URL.Path, "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := msgUnreachable
		if errors.Is(err, context.Canceled) {
			msg = msgCancelled
		}
		log.Warn("request failed", "err", err, "duration_ms", time.Since(start).Milliseconds())
		return &Error{Kind: KindTransport, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Warn("failed to read response", "err", err, "status", resp.StatusCode)
		return &Error{Kind: KindTransport, Status: resp.StatusCode, Message: msgUnreachable, Err: err}
	}
	log.Debug("request", "status", resp.StatusCode, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("Request failed with status code %d", resp.StatusCode)
		}
		log.Warn("request rejected", "status", resp.StatusCode, "message", msg)
		return &Error{Kind: KindTransport, Status: resp.StatusCode, Message: msg}
	}

	if decodeErr != nil {
		log.Warn("undecodable response", "err", decodeErr)
		return &Error{Kind: KindApplication, Status: resp.StatusCode, Message: msgMalformed, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)}
	}
	if env.Status != statusSuccess {
		msg := env.Message
		if msg == "" {
			msg = fallback
		}
		log.Warn("service reported failure", "status_field", env.Status, "message", env.Message)
		return &Error{Kind: KindApplication, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Warn("undecodable payload", "err", err)
		return &Error{Kind: KindApplication, Status: resp.StatusCode, Message: msgMalformed, Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")
