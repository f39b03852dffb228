package pipeline

import (
	"context"
	"errors"
	"fmt"

	"studyai-go/internal/model"
	"studyai-go/internal/repository"
	"studyai-go/pkg/log"
	"studyai-go/pkg/storage"
	"studyai-go/pkg/worker"
)

const (
	defaultDifficulty = "medium"
	defaultCategory   = "General"
)

type notesExecutor struct {
	worker worker.Client
	docs   repository.DocumentRepository
}

// NewNotesExecutor 创建笔记阶段。
func NewNotesExecutor(w worker.Client, docs repository.DocumentRepository) Executor {
	return &notesExecutor{worker: w, docs: docs}
}

func (e *notesExecutor) Stage() Stage { return StageNotes }

func (e *notesExecutor) Execute(ctx context.Context, in Input) error {
	notes, err := e.worker.GenerateNotes(ctx, worker.NotesRequest{DocumentID: in.DocumentID, Text: in.Text, Filename: in.Filename})
	if err != nil {
		return fmt.Errorf("generate notes: %w", err)
	}
	return e.docs.UpdateFields(ctx, in.DocumentID, map[string]interface{}{
		"notes":           notes,
		"notes_generated": true,
	})
}

type quizExecutor struct {
	worker       worker.Client
	quiz         repository.QuizRepository
	defaultCount int
}

// NewQuizExecutor 创建测验阶段，defaultCount 为未指定题目数时的默认值。
func NewQuizExecutor(w worker.Client, quiz repository.QuizRepository, defaultCount int) Executor {
	return &quizExecutor{worker: w, quiz: quiz, defaultCount: defaultCount}
}

func (e *quizExecutor) Stage() Stage { return StageQuiz }

func (e *quizExecutor) Execute(ctx context.Context, in Input) error {
	count := in.Count
	if count <= 0 {
		count = e.defaultCount
	}
	items, err := e.worker.GenerateQuiz(ctx, worker.QuizRequest{DocumentID: in.DocumentID, Text: in.Text, Count: count})
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	questions := make([]model.QuizQuestion, 0, len(items))
	for _, it := range items {
		difficulty := it.Difficulty
		if difficulty == "" {
			difficulty = defaultDifficulty
		}
		questions = append(questions, model.QuizQuestion{
			Question:      it.Question,
			OptionA:       it.OptionA,
			OptionB:       it.OptionB,
			OptionC:       it.OptionC,
			OptionD:       it.OptionD,
			CorrectAnswer: it.CorrectAnswer,
			Explanation:   it.Explanation,
			Difficulty:    difficulty,
		})
	}
	if len(questions) == 0 {
		log.Warnf("[QuizStage] 生成服务未返回任何题目, 清空题目集合, documentID: %s", in.DocumentID)
	}
	return e.quiz.Replace(ctx, in.DocumentID, questions)
}

type flashcardsExecutor struct {
	worker       worker.Client
	cards        repository.FlashcardRepository
	defaultCount int
}

// NewFlashcardsExecutor 创建闪卡阶段。
func NewFlashcardsExecutor(w worker.Client, cards repository.FlashcardRepository, defaultCount int) Executor {
	return &flashcardsExecutor{worker: w, cards: cards, defaultCount: defaultCount}
}

func (e *flashcardsExecutor) Stage() Stage { return StageFlashcards }

func (e *flashcardsExecutor) Execute(ctx context.Context, in Input) error {
	count := in.Count
	if count <= 0 {
		count = e.defaultCount
	}
	items, err := e.worker.GenerateFlashcards(ctx, worker.FlashcardsRequest{DocumentID: in.DocumentID, Text: in.Text, Count: count})
	if err != nil {
		return fmt.Errorf("generate flashcards: %w", err)
	}

	cards := make([]model.Flashcard, 0, len(items))
	for _, it := range items {
		category := it.Category
		if category == "" {
			category = defaultCategory
		}
		cards = append(cards, model.Flashcard{Front: it.Front, Back: it.Back, Category: category})
	}
	return e.cards.Replace(ctx, in.DocumentID, cards)
}

type podcastExecutor struct {
	worker worker.Client
	docs   repository.DocumentRepository
	stager storage.Stager
}

// NewPodcastExecutor 创建播客阶段，生成的音频经 stager 投递后再写入文档。
func NewPodcastExecutor(w worker.Client, docs repository.DocumentRepository, stager storage.Stager) Executor {
	return &podcastExecutor{worker: w, docs: docs, stager: stager}
}

func (e *podcastExecutor) Stage() Stage { return StagePodcast }

func (e *podcastExecutor) Execute(ctx context.Context, in Input) error {
	res, err := e.worker.GeneratePodcast(ctx, worker.PodcastRequest{
		DocumentID:      in.DocumentID,
		Text:            in.Text,
		DurationMinutes: in.DurationMinutes,
	})
	if err != nil {
		return fmt.Errorf("generate podcast: %w", err)
	}

	url, err := e.stager.Stage(ctx, in.DocumentID, res.AudioPath)
	if err != nil {
		return err
	}
	err = e.docs.UpdateFields(ctx, in.DocumentID, map[string]interface{}{
		"podcast_url":       url,
		"podcast_script":    res.Script,
		"podcast_generated": true,
	})
	if errors.Is(err, repository.ErrDocumentNotFound) {
		// 文档在生成期间被删除，已投递的音频不再有归属
		if rmErr := e.stager.Remove(ctx, in.DocumentID); rmErr != nil {
			log.Warnf("[PodcastStage] 清理孤立音频失败, documentID: %s, err: %v", in.DocumentID, rmErr)
		}
	}
	return err
}
