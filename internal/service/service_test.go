package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"studyai-go/internal/config"
	"studyai-go/internal/model"
	"studyai-go/internal/pipeline"
	"studyai-go/internal/repository"
	"studyai-go/internal/testutil"
	"studyai-go/pkg/storage"
	"studyai-go/pkg/tasks"
	"studyai-go/pkg/worker"
)

const photosynthesis = "Photosynthesis is the process by which green plants use sunlight, water and carbon dioxide " +
	"to produce glucose and oxygen. It takes place mainly in the chloroplasts of leaf cells."

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []tasks.GenerationTask
}

func (d *recordingDispatcher) Dispatch(_ context.Context, task tasks.GenerationTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *recordingDispatcher) Shutdown(context.Context) error { return nil }

type env struct {
	db           *gorm.DB
	worker       *testutil.FakeWorker
	dispatcher   *recordingDispatcher
	docs         repository.DocumentRepository
	quiz         repository.QuizRepository
	cards        repository.FlashcardRepository
	orchestrator *pipeline.Orchestrator
	deliveryRoot string
	documents    DocumentService
	generation   GenerationService
	chat         ChatService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	e := &env{
		db:           db,
		worker:       &testutil.FakeWorker{AudioDir: t.TempDir()},
		dispatcher:   &recordingDispatcher{},
		docs:         repository.NewDocumentRepository(db),
		quiz:         repository.NewQuizRepository(db),
		cards:        repository.NewFlashcardRepository(db),
		deliveryRoot: t.TempDir(),
	}
	stager := storage.NewLocalStager(config.DeliveryConfig{Root: e.deliveryRoot, Prefix: "podcasts", BaseURL: "http://localhost:8081/uploads"})
	pipelineCfg := config.PipelineConfig{MinTextLength: 100, DefaultQuizCount: 10, DefaultFlashcardCount: 15}
	e.orchestrator = pipeline.NewOrchestrator(pipelineCfg, e.docs, nil,
		pipeline.NewNotesExecutor(e.worker, e.docs),
		pipeline.NewQuizExecutor(e.worker, e.quiz, 10),
		pipeline.NewFlashcardsExecutor(e.worker, e.cards, 15),
		pipeline.NewPodcastExecutor(e.worker, e.docs, stager),
	)
	serverCfg := config.ServerConfig{PublicURL: "http://localhost:8081", UploadDir: t.TempDir()}
	e.documents = NewDocumentService(e.docs, e.quiz, e.cards, e.worker, e.dispatcher, e.orchestrator, stager, serverCfg)
	e.generation = NewGenerationService(e.docs, e.quiz, e.cards, e.orchestrator)
	e.chat = NewChatService(e.docs, repository.NewChatTurnRepository(db), e.worker, config.ChatConfig{HistoryWindow: 20})
	return e
}

func TestUploadDocumentDispatchesGeneration(t *testing.T) {
	e := newEnv(t)
	var extractedPath string
	e.worker.ExtractTextFn = func(ctx context.Context, filePath string) (string, error) {
		extractedPath = filePath
		return photosynthesis, nil
	}

	doc, err := e.documents.UploadDocument(context.Background(), "u1", UploadedFile{
		Filename: "Biology.PPTX",
		Size:     5,
		Content:  strings.NewReader("slide"),
	})
	require.NoError(t, err)

	assert.Equal(t, model.SourcePPTX, doc.SourceType)
	assert.Equal(t, int64(5), doc.FileSize)
	assert.False(t, doc.NotesGenerated)
	assert.True(t, filepath.IsAbs(extractedPath))
	assert.True(t, strings.HasPrefix(doc.FileURL, "http://localhost:8081/uploads/documents/"))
	data, err := os.ReadFile(extractedPath)
	require.NoError(t, err)
	assert.Equal(t, "slide", string(data))

	require.Len(t, e.dispatcher.tasks, 1)
	assert.Equal(t, doc.ID, e.dispatcher.tasks[0].DocumentID)
}

func TestUploadDocumentExtractionFailureKeepsDocument(t *testing.T) {
	e := newEnv(t)
	e.worker.ExtractTextFn = func(context.Context, string) (string, error) {
		return "", worker.ErrWorkerTimeout
	}

	doc, err := e.documents.UploadDocument(context.Background(), "u1", UploadedFile{Filename: "scan.pdf", Content: strings.NewReader("%PDF")})
	require.NoError(t, err)

	stored, err := e.docs.FindByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExtractionFailedText, stored.ExtractedText)
	assert.Empty(t, e.dispatcher.tasks)
}

func TestUploadDocumentShortTextIsNotDispatched(t *testing.T) {
	e := newEnv(t)
	e.worker.ExtractTextFn = func(context.Context, string) (string, error) {
		return strings.Repeat("a", 100), nil
	}

	_, err := e.documents.UploadDocument(context.Background(), "u1", UploadedFile{Filename: "notes.md", Content: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Empty(t, e.dispatcher.tasks)
}

func TestIngestVideo(t *testing.T) {
	e := newEnv(t)
	e.worker.ExtractVideoFn = func(ctx context.Context, url string) (*worker.VideoInfo, error) {
		return &worker.VideoInfo{VideoID: "dQw4w9WgXcQ", Text: photosynthesis, Duration: 212}, nil
	}

	doc, err := e.documents.IngestVideo(context.Background(), "u1", "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "YouTube: dQw4w9WgXcQ", doc.Filename)
	assert.Equal(t, model.SourceYouTube, doc.SourceType)
	assert.Equal(t, 212, doc.DurationSeconds)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", doc.FileURL)
	require.Len(t, e.dispatcher.tasks, 1)
}

func TestIngestVideoFailureCreatesNothing(t *testing.T) {
	e := newEnv(t)
	e.worker.ExtractVideoFn = func(ctx context.Context, url string) (*worker.VideoInfo, error) {
		return nil, &worker.StatusError{Path: "/extract-youtube", StatusCode: 400, Detail: "Transcripts are disabled"}
	}

	_, err := e.documents.IngestVideo(context.Background(), "u1", "https://youtu.be/x")
	require.ErrorIs(t, err, ErrExtractionFailed)
	var statusErr *worker.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "Transcripts are disabled", statusErr.Detail)

	docs, err := e.documents.ListDocuments(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Empty(t, e.dispatcher.tasks)

	_, err = e.documents.IngestVideo(context.Background(), "u1", " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteDocumentRemovesPodcast(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", photosynthesis)
	_, err := e.generation.RegeneratePodcast(context.Background(), "u1", "doc-1", nil)
	require.NoError(t, err)
	audio := filepath.Join(e.deliveryRoot, "podcasts", "doc-1.mp3")
	require.FileExists(t, audio)

	assert.ErrorIs(t, e.documents.DeleteDocument(context.Background(), "u2", "doc-1"), repository.ErrDocumentNotFound)
	require.NoError(t, e.documents.DeleteDocument(context.Background(), "u1", "doc-1"))
	assert.NoFileExists(t, audio)

	_, err = e.documents.GetDocument(context.Background(), "u1", "doc-1")
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
}

func TestRegeneratePodcastDefaultsToFiveMinutes(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", photosynthesis)
	var minutes []int
	e.worker.PodcastFn = func(ctx context.Context, req worker.PodcastRequest) (*worker.PodcastResult, error) {
		minutes = append(minutes, *req.DurationMinutes)
		p := filepath.Join(e.worker.AudioDir, "a.mp3")
		require.NoError(t, os.WriteFile(p, []byte("audio"), 0o644))
		return &worker.PodcastResult{AudioPath: p, Script: "s"}, nil
	}

	doc, err := e.generation.RegeneratePodcast(context.Background(), "u1", "doc-1", nil)
	require.NoError(t, err)
	assert.Contains(t, doc.PodcastURL, "doc-1")
	ten := 10
	_, err = e.generation.RegeneratePodcast(context.Background(), "u1", "doc-1", &ten)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 10}, minutes)
}

func TestRegenerateQuizWithEmptyResponse(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", photosynthesis)
	questions, err := e.generation.RegenerateQuiz(context.Background(), "u1", "doc-1", 4)
	require.NoError(t, err)
	assert.Len(t, questions, 4)

	e.worker.QuizFn = func(context.Context, worker.QuizRequest) ([]worker.QuizItem, error) {
		return []worker.QuizItem{}, nil
	}
	questions, err = e.generation.RegenerateQuiz(context.Background(), "u1", "doc-1", 0)
	require.NoError(t, err)
	assert.Empty(t, questions)

	listed, err := e.documents.ListQuiz(context.Background(), "u1", "doc-1")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestRegenerateRejectsMissingText(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", "")

	_, err := e.generation.RegenerateNotes(context.Background(), "u1", "doc-1")
	assert.ErrorIs(t, err, ErrNoTextContent)
	_, err = e.generation.RegenerateFlashcards(context.Background(), "u2", "doc-1", 5)
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
}

func TestRegenerateNotesSurfacesWorkerFailure(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", photosynthesis)
	e.worker.NotesFn = func(context.Context, worker.NotesRequest) (string, error) {
		return "", worker.ErrWorkerUnavailable
	}

	_, err := e.generation.RegenerateNotes(context.Background(), "u1", "doc-1")
	assert.ErrorIs(t, err, worker.ErrWorkerUnavailable)
}

func TestChatTwoMessagesProduceFourOrderedTurns(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", photosynthesis)

	reply1, err := e.chat.PostMessage(context.Background(), "u1", "doc-1", "What is photosynthesis?")
	require.NoError(t, err)
	reply2, err := e.chat.PostMessage(context.Background(), "u1", "doc-1", "Where does it happen?")
	require.NoError(t, err)

	turns, err := e.chat.History(context.Background(), "u1", "doc-1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, []string{"What is photosynthesis?", reply1, "Where does it happen?", reply2},
		[]string{turns[0].Content, turns[1].Content, turns[2].Content, turns[3].Content})
	assert.Equal(t, []string{model.RoleUser, model.RoleAssistant, model.RoleUser, model.RoleAssistant},
		[]string{turns[0].Role, turns[1].Role, turns[2].Role, turns[3].Role})

	require.Len(t, e.worker.Chats, 2)
	assert.Empty(t, e.worker.Chats[0].History)
	assert.Len(t, e.worker.Chats[1].History, 2)
	assert.Equal(t, photosynthesis, e.worker.Chats[1].Text)
}

func TestChatHistorySentToWorkerIsCapped(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", photosynthesis)
	turns := repository.NewChatTurnRepository(e.db)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 30; i++ {
		require.NoError(t, turns.Append(context.Background(), &model.ChatTurn{
			DocumentID: "doc-1", UserID: "u1", Role: model.RoleUser, Content: "old", CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	_, err := e.chat.PostMessage(context.Background(), "u1", "doc-1", "latest?")
	require.NoError(t, err)
	require.Len(t, e.worker.Chats, 1)
	assert.Len(t, e.worker.Chats[0].History, 20)
}

func TestChatWorkerFailureAppendsNothing(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", photosynthesis)
	e.worker.ChatFn = func(context.Context, worker.ChatRequest) (string, error) {
		return "", worker.ErrWorkerTimeout
	}

	_, err := e.chat.PostMessage(context.Background(), "u1", "doc-1", "hello")
	assert.ErrorIs(t, err, worker.ErrWorkerTimeout)

	turns, err := e.chat.History(context.Background(), "u1", "doc-1")
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestChatValidationAndClear(t *testing.T) {
	e := newEnv(t)
	testutil.SeedDocument(t, e.db, "doc-1", "u1", photosynthesis)

	_, err := e.chat.PostMessage(context.Background(), "u1", "doc-1", "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.chat.PostMessage(context.Background(), "u2", "doc-1", "hi")
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)

	_, err = e.chat.PostMessage(context.Background(), "u1", "doc-1", "hi")
	require.NoError(t, err)
	n, err := e.chat.Clear(context.Background(), "u1", "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
