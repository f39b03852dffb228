// Package worker provides a client for the external generation worker that
// performs text extraction and all notes/quiz/flashcards/podcast/chat generation.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"studyai-go/internal/config"
	"studyai-go/pkg/log"
)

var (
	// ErrWorkerTimeout 表示调用在超时预算内没有完成。
	ErrWorkerTimeout = errors.New("worker timeout")
	// ErrWorkerUnavailable 表示生成服务不可达、返回非 200 或响应无法解析。
	ErrWorkerUnavailable = errors.New("worker unavailable")
)

// StatusError 携带生成服务返回的非 200 状态码与错误详情。
type StatusError struct {
	Path       string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("worker %s returned status %d: %s", e.Path, e.StatusCode, e.Detail)
}

// Unwrap 让 errors.Is(err, ErrWorkerUnavailable) 对非 200 响应成立。
func (e *StatusError) Unwrap() error {
	return ErrWorkerUnavailable
}

// Client defines the interface for the generation worker. Every call has its
// own fixed timeout and is never retried.
type Client interface {
	ExtractText(ctx context.Context, filePath string) (string, error)
	ExtractVideo(ctx context.Context, url string) (*VideoInfo, error)
	GenerateNotes(ctx context.Context, req NotesRequest) (string, error)
	GenerateQuiz(ctx context.Context, req QuizRequest) ([]QuizItem, error)
	GenerateFlashcards(ctx context.Context, req FlashcardsRequest) ([]FlashcardItem, error)
	GeneratePodcast(ctx context.Context, req PodcastRequest) (*PodcastResult, error)
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

type httpClient struct {
	baseURL  string
	timeouts config.WorkerTimeoutsConfig
	client   *http.Client
}

// NewClient creates a new worker client for the configured base URL.
func NewClient(cfg config.WorkerConfig) Client {
	return &httpClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timeouts: cfg.Timeouts,
		client:   &http.Client{},
	}
}

func (c *httpClient) ExtractText(ctx context.Context, filePath string) (string, error) {
	var resp extractTextResponse
	if err := c.post(ctx, "/extract-text", c.timeouts.ExtractText, extractTextRequest{FilePath: filePath}, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *httpClient) ExtractVideo(ctx context.Context, url string) (*VideoInfo, error) {
	var resp VideoInfo
	if err := c.post(ctx, "/extract-youtube", c.timeouts.ExtractVideo, extractVideoRequest{URL: url}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) GenerateNotes(ctx context.Context, req NotesRequest) (string, error) {
	var resp notesResponse
	body := notesRequest{DocumentID: req.DocumentID, TextContent: req.Text, Filename: req.Filename}
	if err := c.post(ctx, "/generate-notes", c.timeouts.Notes, body, &resp); err != nil {
		return "", err
	}
	return resp.Notes, nil
}

func (c *httpClient) GenerateQuiz(ctx context.Context, req QuizRequest) ([]QuizItem, error) {
	var resp quizResponse
	body := quizRequest{DocumentID: req.DocumentID, TextContent: req.Text, NumQuestions: req.Count}
	if err := c.post(ctx, "/generate-quiz", c.timeouts.Quiz, body, &resp); err != nil {
		return nil, err
	}
	return resp.Questions, nil
}

func (c *httpClient) GenerateFlashcards(ctx context.Context, req FlashcardsRequest) ([]FlashcardItem, error) {
	var resp flashcardsResponse
	body := flashcardsRequest{DocumentID: req.DocumentID, TextContent: req.Text, NumCards: req.Count}
	if err := c.post(ctx, "/generate-flashcards", c.timeouts.Flashcards, body, &resp); err != nil {
		return nil, err
	}
	return resp.Flashcards, nil
}

func (c *httpClient) GeneratePodcast(ctx context.Context, req PodcastRequest) (*PodcastResult, error) {
	var resp PodcastResult
	body := podcastRequest{DocumentID: req.DocumentID, TextContent: req.Text, DurationMinutes: req.DurationMinutes}
	if err := c.post(ctx, "/generate-podcast", c.timeouts.Podcast, body, &resp); err != nil {
		return nil, err
	}
	if resp.AudioPath == "" {
		return nil, fmt.Errorf("%w: /generate-podcast returned no audio_path", ErrWorkerUnavailable)
	}
	return &resp, nil
}

func (c *httpClient) Chat(ctx context.Context, req ChatRequest) (string, error) {
	history := req.History
	if history == nil {
		history = []HistoryMessage{}
	}
	var resp chatResponse
	body := chatRequest{
		DocumentID:      req.DocumentID,
		DocumentContent: req.Text,
		UserMessage:     req.Message,
		ChatHistory:     history,
	}
	if err := c.post(ctx, "/chat", c.timeouts.Chat, body, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// post 以 JSON 发送请求并把 200 响应解码到 out，超时预算只作用于这一次调用。
func (c *httpClient) post(ctx context.Context, path string, timeout time.Duration, in, out interface{}) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reqBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return classify(ctx, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		detail := string(bodyBytes)
		var er errorResponse
		if json.Unmarshal(bodyBytes, &er) == nil && er.Detail != "" {
			detail = er.Detail
		}
		log.Warnf("[WorkerClient] %s 返回非 200 状态码: %d, detail: %s", path, resp.StatusCode, detail)
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Detail: detail}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return classify(ctx, path, err)
		}
		return fmt.Errorf("%w: failed to decode %s response: %v", ErrWorkerUnavailable, path, err)
	}
	log.Debugf("[WorkerClient] %s 调用成功, 耗时: %s", path, time.Since(start))
	return nil
}

// classify 把传输层错误归类为超时或不可用。
func classify(ctx context.Context, path string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		log.Warnf("[WorkerClient] 调用 %s 超时: %v", path, err)
		return fmt.Errorf("%w: %s: %v", ErrWorkerTimeout, path, err)
	}
	log.Warnf("[WorkerClient] 调用 %s 失败: %v", path, err)
	return fmt.Errorf("%w: %s: %v", ErrWorkerUnavailable, path, err)
}
