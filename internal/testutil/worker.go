package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"studyai-go/pkg/worker"
)

// FakeWorker 是 worker.Client 的内存实现。未设置的函数返回确定性的默认结果，
// 每次调用都按顺序记录在 Calls 中。
type FakeWorker struct {
	AudioDir string

	ExtractTextFn   func(ctx context.Context, filePath string) (string, error)
	ExtractVideoFn  func(ctx context.Context, url string) (*worker.VideoInfo, error)
	NotesFn         func(ctx context.Context, req worker.NotesRequest) (string, error)
	QuizFn          func(ctx context.Context, req worker.QuizRequest) ([]worker.QuizItem, error)
	FlashcardsFn    func(ctx context.Context, req worker.FlashcardsRequest) ([]worker.FlashcardItem, error)
	PodcastFn       func(ctx context.Context, req worker.PodcastRequest) (*worker.PodcastResult, error)
	ChatFn          func(ctx context.Context, req worker.ChatRequest) (string, error)

	mu    sync.Mutex
	Calls []string
	Chats []worker.ChatRequest
}

func (f *FakeWorker) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, name)
}

// CallNames 返回已记录调用的副本。
func (f *FakeWorker) CallNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

func (f *FakeWorker) ExtractText(ctx context.Context, filePath string) (string, error) {
	f.record("extract-text")
	if f.ExtractTextFn != nil {
		return f.ExtractTextFn(ctx, filePath)
	}
	return "", nil
}

func (f *FakeWorker) ExtractVideo(ctx context.Context, url string) (*worker.VideoInfo, error) {
	f.record("extract-video")
	if f.ExtractVideoFn != nil {
		return f.ExtractVideoFn(ctx, url)
	}
	return &worker.VideoInfo{}, nil
}

func (f *FakeWorker) GenerateNotes(ctx context.Context, req worker.NotesRequest) (string, error) {
	f.record("notes")
	if f.NotesFn != nil {
		return f.NotesFn(ctx, req)
	}
	return "# Notes for " + req.Filename, nil
}

func (f *FakeWorker) GenerateQuiz(ctx context.Context, req worker.QuizRequest) ([]worker.QuizItem, error) {
	f.record("quiz")
	if f.QuizFn != nil {
		return f.QuizFn(ctx, req)
	}
	items := make([]worker.QuizItem, req.Count)
	for i := range items {
		items[i] = worker.QuizItem{Question: "Q", OptionA: "A", OptionB: "B", OptionC: "C", OptionD: "D", CorrectAnswer: "A"}
	}
	return items, nil
}

func (f *FakeWorker) GenerateFlashcards(ctx context.Context, req worker.FlashcardsRequest) ([]worker.FlashcardItem, error) {
	f.record("flashcards")
	if f.FlashcardsFn != nil {
		return f.FlashcardsFn(ctx, req)
	}
	items := make([]worker.FlashcardItem, req.Count)
	for i := range items {
		items[i] = worker.FlashcardItem{Front: "front", Back: "back"}
	}
	return items, nil
}

func (f *FakeWorker) GeneratePodcast(ctx context.Context, req worker.PodcastRequest) (*worker.PodcastResult, error) {
	f.record("podcast")
	if f.PodcastFn != nil {
		return f.PodcastFn(ctx, req)
	}
	dir := f.AudioDir
	if dir == "" {
		dir = os.TempDir()
	}
	p := filepath.Join(dir, "worker-"+req.DocumentID+".mp3")
	if err := os.WriteFile(p, []byte("ID3"), 0o644); err != nil {
		return nil, err
	}
	return &worker.PodcastResult{AudioPath: p, Script: "HOST: welcome"}, nil
}

func (f *FakeWorker) Chat(ctx context.Context, req worker.ChatRequest) (string, error) {
	f.record("chat")
	f.mu.Lock()
	f.Chats = append(f.Chats, req)
	f.mu.Unlock()
	if f.ChatFn != nil {
		return f.ChatFn(ctx, req)
	}
	return "answer to " + req.Message, nil
}
