package service

import (
	"context"
	"fmt"
	"strings"

	"studyai-go/internal/model"
	"studyai-go/internal/pipeline"
	"studyai-go/internal/repository"
	"studyai-go/pkg/log"
)

// defaultPodcastMinutes 是手动再生成播客且未指定时长时使用的时长。
const defaultPodcastMinutes = 5

// StageRunner 执行单个生成阶段。
type StageRunner interface {
	RunStage(ctx context.Context, stage pipeline.Stage, in pipeline.Input) error
}

// GenerationService 定义了按阶段同步再生成学习内容的操作，返回新生成的内容。
// 同一文档同一阶段已有生成在进行时返回 pipeline.ErrStageBusy。
type GenerationService interface {
	RegenerateNotes(ctx context.Context, userID, documentID string) (*model.Document, error)
	RegenerateQuiz(ctx context.Context, userID, documentID string, numQuestions int) ([]model.QuizQuestion, error)
	RegenerateFlashcards(ctx context.Context, userID, documentID string, numCards int) ([]model.Flashcard, error)
	RegeneratePodcast(ctx context.Context, userID, documentID string, durationMinutes *int) (*model.Document, error)
}

type generationService struct {
	docs   repository.DocumentRepository
	quiz   repository.QuizRepository
	cards  repository.FlashcardRepository
	runner StageRunner
}

// NewGenerationService 创建一个新的 GenerationService 实例。
func NewGenerationService(
	docs repository.DocumentRepository,
	quiz repository.QuizRepository,
	cards repository.FlashcardRepository,
	runner StageRunner,
) GenerationService {
	return &generationService{docs: docs, quiz: quiz, cards: cards, runner: runner}
}

// run 校验文档归属与正文后执行阶段。
func (s *generationService) run(ctx context.Context, userID, documentID string, stage pipeline.Stage, in pipeline.Input) error {
	doc, err := s.docs.FindByIDAndOwner(ctx, documentID, userID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(doc.ExtractedText) == "" {
		return ErrNoTextContent
	}

	in.DocumentID = doc.ID
	in.Text = doc.ExtractedText
	in.Filename = doc.Filename
	log.Infof("[GenerationService] 开始再生成 %s, documentID: %s", stage, documentID)
	if err := s.runner.RunStage(ctx, stage, in); err != nil {
		log.Errorf("[GenerationService] 再生成 %s 失败, documentID: %s, err: %v", stage, documentID, err)
		return err
	}
	return nil
}

func (s *generationService) RegenerateNotes(ctx context.Context, userID, documentID string) (*model.Document, error) {
	if err := s.run(ctx, userID, documentID, pipeline.StageNotes, pipeline.Input{}); err != nil {
		return nil, err
	}
	return s.docs.FindByID(ctx, documentID)
}

func (s *generationService) RegenerateQuiz(ctx context.Context, userID, documentID string, numQuestions int) ([]model.QuizQuestion, error) {
	if numQuestions < 0 {
		return nil, fmt.Errorf("%w: num_questions must be positive", ErrInvalidInput)
	}
	if err := s.run(ctx, userID, documentID, pipeline.StageQuiz, pipeline.Input{Count: numQuestions}); err != nil {
		return nil, err
	}
	return s.quiz.ListByDocument(ctx, documentID)
}

func (s *generationService) RegenerateFlashcards(ctx context.Context, userID, documentID string, numCards int) ([]model.Flashcard, error) {
	if numCards < 0 {
		return nil, fmt.Errorf("%w: num_cards must be positive", ErrInvalidInput)
	}
	if err := s.run(ctx, userID, documentID, pipeline.StageFlashcards, pipeline.Input{Count: numCards}); err != nil {
		return nil, err
	}
	return s.cards.ListByDocument(ctx, documentID)
}

func (s *generationService) RegeneratePodcast(ctx context.Context, userID, documentID string, durationMinutes *int) (*model.Document, error) {
	minutes := defaultPodcastMinutes
	if durationMinutes != nil {
		if *durationMinutes <= 0 {
			return nil, fmt.Errorf("%w: duration_minutes must be positive", ErrInvalidInput)
		}
		minutes = *durationMinutes
	}
	if err := s.run(ctx, userID, documentID, pipeline.StagePodcast, pipeline.Input{DurationMinutes: &minutes}); err != nil {
		return nil, err
	}
	return s.docs.FindByID(ctx, documentID)
}
