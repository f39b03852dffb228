package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"studyai-go/internal/config"
	"studyai-go/internal/model"
	"studyai-go/internal/repository"
	"studyai-go/internal/testutil"
	"studyai-go/pkg/storage"
	"studyai-go/pkg/tasks"
	"studyai-go/pkg/worker"
)

const photosynthesis = "Photosynthesis is the process by which green plants use sunlight, water and carbon dioxide " +
	"to produce glucose and oxygen. It takes place mainly in the chloroplasts of leaf cells."

type fixture struct {
	db           *gorm.DB
	worker       *testutil.FakeWorker
	docs         repository.DocumentRepository
	quiz         repository.QuizRepository
	cards        repository.FlashcardRepository
	deliveryRoot string
	orchestrator *Orchestrator
}

func newFixture(t *testing.T, locks repository.StageLockRepository) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:           db,
		worker:       &testutil.FakeWorker{AudioDir: t.TempDir()},
		docs:         repository.NewDocumentRepository(db),
		quiz:         repository.NewQuizRepository(db),
		cards:        repository.NewFlashcardRepository(db),
		deliveryRoot: t.TempDir(),
	}
	stager := storage.NewLocalStager(config.DeliveryConfig{
		Root:    f.deliveryRoot,
		Prefix:  "podcasts",
		BaseURL: "http://localhost:8081/uploads",
	})
	cfg := config.PipelineConfig{
		MinTextLength:         100,
		DefaultQuizCount:      10,
		DefaultFlashcardCount: 15,
		StageLock:             config.StageLockConfig{Enabled: locks != nil, TTL: time.Minute},
	}
	f.orchestrator = NewOrchestrator(cfg, f.docs, locks,
		NewNotesExecutor(f.worker, f.docs),
		NewQuizExecutor(f.worker, f.quiz, cfg.DefaultQuizCount),
		NewFlashcardsExecutor(f.worker, f.cards, cfg.DefaultFlashcardCount),
		NewPodcastExecutor(f.worker, f.docs, stager),
	)
	return f
}

func (f *fixture) reload(t *testing.T, id string) *model.Document {
	t.Helper()
	doc, err := f.docs.FindByID(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func TestRunAllSkipsTextAtOrBelowThreshold(t *testing.T) {
	f := newFixture(t, nil)

	for _, n := range []int{0, 99, 100} {
		report := f.orchestrator.RunAll(context.Background(), "doc-short", strings.Repeat("a", n), "short.txt")
		assert.True(t, report.Skipped, "length %d", n)
		assert.Empty(t, report.Outcomes)
	}
	assert.Empty(t, f.worker.CallNames())
}

func TestRunAllThresholdCountsCharactersNotBytes(t *testing.T) {
	f := newFixture(t, nil)

	// 60 个双字节字符超过 100 字节，但字符数未超过阈值
	report := f.orchestrator.RunAll(context.Background(), "doc-cjk", strings.Repeat("光合", 30), "cjk.txt")
	assert.True(t, report.Skipped)
}

func TestRunAllRunsStagesInOrder(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-101", "u1", strings.Repeat("a", 101))

	report := f.orchestrator.RunAll(context.Background(), "doc-101", strings.Repeat("a", 101), "doc.txt")
	require.False(t, report.Skipped)
	assert.Empty(t, report.Failed())
	assert.Equal(t, []string{"notes", "quiz", "flashcards", "podcast"}, f.worker.CallNames())

	stages := make([]Stage, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		stages = append(stages, o.Stage)
	}
	assert.Equal(t, Stages, stages)
}

func TestPhotosynthesisIngestGeneratesEverything(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-photo", "u1", photosynthesis)
	require.False(t, f.reload(t, "doc-photo").NotesGenerated)

	report := f.orchestrator.RunAll(context.Background(), "doc-photo", photosynthesis, "photosynthesis.pdf")
	require.Empty(t, report.Failed())

	doc := f.reload(t, "doc-photo")
	assert.True(t, doc.NotesGenerated)
	assert.Equal(t, "# Notes for photosynthesis.pdf", doc.Notes)
	assert.True(t, doc.PodcastGenerated)
	assert.Contains(t, doc.PodcastURL, "doc-photo")
	assert.Equal(t, "HOST: welcome", doc.PodcastScript)

	questions, err := f.quiz.ListByDocument(context.Background(), "doc-photo")
	require.NoError(t, err)
	assert.Len(t, questions, 10)
	assert.Equal(t, "medium", questions[0].Difficulty)

	cards, err := f.cards.ListByDocument(context.Background(), "doc-photo")
	require.NoError(t, err)
	assert.Len(t, cards, 15)
	assert.Equal(t, "General", cards[0].Category)
}

func TestFailingWorkerLeavesPriorContentUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	require.Empty(t, f.orchestrator.RunAll(context.Background(), "doc-1", photosynthesis, "a.pdf").Failed())
	before := f.reload(t, "doc-1")

	failure := worker.ErrWorkerUnavailable
	f.worker.NotesFn = func(context.Context, worker.NotesRequest) (string, error) { return "", failure }
	f.worker.QuizFn = func(context.Context, worker.QuizRequest) ([]worker.QuizItem, error) { return nil, failure }
	f.worker.FlashcardsFn = func(context.Context, worker.FlashcardsRequest) ([]worker.FlashcardItem, error) {
		return nil, worker.ErrWorkerTimeout
	}
	f.worker.PodcastFn = func(context.Context, worker.PodcastRequest) (*worker.PodcastResult, error) { return nil, failure }

	report := f.orchestrator.RunAll(context.Background(), "doc-1", photosynthesis, "a.pdf")
	assert.Equal(t, Stages, report.Failed())
	assert.ErrorIs(t, report.Outcomes[2].Err, worker.ErrWorkerTimeout)

	after := f.reload(t, "doc-1")
	assert.Equal(t, before.Notes, after.Notes)
	assert.True(t, after.NotesGenerated)
	assert.Equal(t, before.PodcastURL, after.PodcastURL)
	assert.Equal(t, before.PodcastScript, after.PodcastScript)

	questions, err := f.quiz.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, questions, 10)
	cards, err := f.cards.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, cards, 15)
}

func TestFailingStageDoesNotStopLaterStages(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	f.worker.NotesFn = func(context.Context, worker.NotesRequest) (string, error) {
		return "", worker.ErrWorkerUnavailable
	}
	f.worker.QuizFn = func(context.Context, worker.QuizRequest) ([]worker.QuizItem, error) {
		panic("unexpected payload")
	}

	report := f.orchestrator.RunAll(context.Background(), "doc-1", photosynthesis, "a.pdf")
	assert.Equal(t, []Stage{StageNotes, StageQuiz}, report.Failed())
	assert.Equal(t, []string{"notes", "quiz", "flashcards", "podcast"}, f.worker.CallNames())

	doc := f.reload(t, "doc-1")
	assert.False(t, doc.NotesGenerated)
	assert.True(t, doc.PodcastGenerated)
}

func TestRunAllIgnoresCallerCancellation(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.worker.NotesFn = func(ctx context.Context, req worker.NotesRequest) (string, error) {
		return "notes", ctx.Err()
	}

	report := f.orchestrator.RunAll(ctx, "doc-1", photosynthesis, "a.pdf")
	assert.Empty(t, report.Failed())
	assert.True(t, f.reload(t, "doc-1").NotesGenerated)
}

func TestQuizRegenerationWithEmptyResponseClearsSet(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	require.NoError(t, f.orchestrator.RunStage(context.Background(), StageQuiz, Input{DocumentID: "doc-1", Text: photosynthesis}))

	f.worker.QuizFn = func(context.Context, worker.QuizRequest) ([]worker.QuizItem, error) { return nil, nil }
	require.NoError(t, f.orchestrator.RunStage(context.Background(), StageQuiz, Input{DocumentID: "doc-1", Text: photosynthesis}))

	questions, err := f.quiz.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Empty(t, questions)
}

func TestQuizCountOverride(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)

	require.NoError(t, f.orchestrator.RunStage(context.Background(), StageQuiz, Input{DocumentID: "doc-1", Text: photosynthesis, Count: 3}))
	questions, err := f.quiz.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, questions, 3)
}

func TestPodcastRegenerationKeepsSingleFile(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-7", "u1", photosynthesis)
	minutes := 5
	in := Input{DocumentID: "doc-7", Text: photosynthesis, DurationMinutes: &minutes}

	var seen []*int
	f.worker.PodcastFn = func(ctx context.Context, req worker.PodcastRequest) (*worker.PodcastResult, error) {
		seen = append(seen, req.DurationMinutes)
		p := filepath.Join(f.worker.AudioDir, "out.mp3")
		require.NoError(t, os.WriteFile(p, []byte("audio"), 0o644))
		return &worker.PodcastResult{AudioPath: p, Script: "script"}, nil
	}

	require.NoError(t, f.orchestrator.RunStage(context.Background(), StagePodcast, in))
	require.NoError(t, f.orchestrator.RunStage(context.Background(), StagePodcast, in))

	entries, err := os.ReadDir(filepath.Join(f.deliveryRoot, "podcasts"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc-7.mp3", entries[0].Name())
	assert.Equal(t, "http://localhost:8081/uploads/podcasts/doc-7.mp3", f.reload(t, "doc-7").PodcastURL)
	require.Len(t, seen, 2)
	assert.Equal(t, 5, *seen[0])
}

func TestRunStageReturnsBusyWhenLockHeld(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	f := newFixture(t, repository.NewStageLockRepository(rdb))
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	require.NoError(t, mr.Set("stage_lock:doc-1:notes", "someone-else"))

	err := f.orchestrator.RunStage(context.Background(), StageNotes, Input{DocumentID: "doc-1", Text: photosynthesis})
	assert.ErrorIs(t, err, ErrStageBusy)
	assert.Empty(t, f.worker.CallNames())

	// 其他阶段不受影响，执行完毕后锁被释放
	require.NoError(t, f.orchestrator.RunStage(context.Background(), StageQuiz, Input{DocumentID: "doc-1", Text: photosynthesis}))
	assert.False(t, mr.Exists("stage_lock:doc-1:quiz"))
}

func TestRunStageProceedsWithoutLockWhenRedisDown(t *testing.T) {
	mr, rdb := testutil.NewRedis(t)
	f := newFixture(t, repository.NewStageLockRepository(rdb))
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	mr.Close()

	report := f.orchestrator.RunAll(context.Background(), "doc-1", photosynthesis, "a.pdf")
	assert.Empty(t, report.Failed())
	assert.Equal(t, []string{"notes", "quiz", "flashcards", "podcast"}, f.worker.CallNames())

	doc := f.reload(t, "doc-1")
	assert.True(t, doc.NotesGenerated)
	assert.True(t, doc.PodcastGenerated)
}

func (f *fixture) countChildren(t *testing.T, id string) (int, int) {
	t.Helper()
	questions, err := f.quiz.ListByDocument(context.Background(), id)
	require.NoError(t, err)
	cards, err := f.cards.ListByDocument(context.Background(), id)
	require.NoError(t, err)
	return len(questions), len(cards)
}

func TestDocumentDeletedDuringRunLeavesNothingBehind(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	f.worker.NotesFn = func(ctx context.Context, req worker.NotesRequest) (string, error) {
		_, err := f.docs.Delete(ctx, req.DocumentID, "u1")
		require.NoError(t, err)
		return "notes", nil
	}

	report := f.orchestrator.RunAll(context.Background(), "doc-1", photosynthesis, "a.pdf")
	assert.True(t, report.Aborted)
	assert.Equal(t, []Stage{StageNotes}, report.Failed())
	assert.ErrorIs(t, report.Outcomes[0].Err, repository.ErrDocumentNotFound)
	assert.Equal(t, []string{"notes"}, f.worker.CallNames())

	quizCount, cardCount := f.countChildren(t, "doc-1")
	assert.Zero(t, quizCount)
	assert.Zero(t, cardCount)
	assert.NoFileExists(t, filepath.Join(f.deliveryRoot, "podcasts", "doc-1.mp3"))
}

func TestDocumentDeletedDuringQuizStageStopsRun(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	f.worker.QuizFn = func(ctx context.Context, req worker.QuizRequest) ([]worker.QuizItem, error) {
		_, err := f.docs.Delete(ctx, req.DocumentID, "u1")
		require.NoError(t, err)
		return []worker.QuizItem{{Question: "Q", CorrectAnswer: "A"}}, nil
	}

	report := f.orchestrator.RunAll(context.Background(), "doc-1", photosynthesis, "a.pdf")
	assert.True(t, report.Aborted)
	assert.Equal(t, []Stage{StageQuiz}, report.Failed())
	assert.Equal(t, []string{"notes", "quiz"}, f.worker.CallNames())

	quizCount, cardCount := f.countChildren(t, "doc-1")
	assert.Zero(t, quizCount)
	assert.Zero(t, cardCount)
}

func TestPodcastStagedForDeletedDocumentIsRemoved(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)
	f.worker.PodcastFn = func(ctx context.Context, req worker.PodcastRequest) (*worker.PodcastResult, error) {
		_, err := f.docs.Delete(ctx, req.DocumentID, "u1")
		require.NoError(t, err)
		p := filepath.Join(f.worker.AudioDir, "late.mp3")
		require.NoError(t, os.WriteFile(p, []byte("audio"), 0o644))
		return &worker.PodcastResult{AudioPath: p, Script: "script"}, nil
	}

	err := f.orchestrator.RunStage(context.Background(), StagePodcast, Input{DocumentID: "doc-1", Text: photosynthesis})
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
	assert.NoFileExists(t, filepath.Join(f.deliveryRoot, "podcasts", "doc-1.mp3"))
}

func TestRunStageUnknown(t *testing.T) {
	f := newFixture(t, nil)
	assert.ErrorIs(t, f.orchestrator.RunStage(context.Background(), Stage("summary"), Input{}), ErrUnknownStage)
}

func TestProcessLoadsDocumentText(t *testing.T) {
	f := newFixture(t, nil)
	testutil.SeedDocument(t, f.db, "doc-1", "u1", photosynthesis)

	require.NoError(t, f.orchestrator.Process(context.Background(), tasks.GenerationTask{DocumentID: "doc-1"}))
	assert.True(t, f.reload(t, "doc-1").NotesGenerated)

	err := f.orchestrator.Process(context.Background(), tasks.GenerationTask{DocumentID: "missing"})
	assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
}

func TestParseStage(t *testing.T) {
	st, err := ParseStage("flashcards")
	require.NoError(t, err)
	assert.Equal(t, StageFlashcards, st)

	_, err = ParseStage("summary")
	assert.ErrorIs(t, err, ErrUnknownStage)
}
