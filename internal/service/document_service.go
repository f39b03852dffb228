package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"studyai-go/internal/config"
	"studyai-go/internal/model"
	"studyai-go/internal/pipeline"
	"studyai-go/internal/repository"
	"studyai-go/pkg/log"
	"studyai-go/pkg/storage"
	"studyai-go/pkg/tasks"
	"studyai-go/pkg/worker"
)

// UploadedFile 描述一个待入库的上传文件。
type UploadedFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// DocumentService 接口定义了文档入库与查询相关的业务操作。
type DocumentService interface {
	// UploadDocument 保存上传文件、提取正文并创建文档，正文足够长时在后台触发全量生成。
	// 提取失败时文档仍会创建，正文为固定的失败提示，且不会触发生成。
	UploadDocument(ctx context.Context, userID string, file UploadedFile) (*model.Document, error)
	// IngestVideo 通过视频转写创建文档；转写失败时返回 ErrExtractionFailed，不创建文档。
	IngestVideo(ctx context.Context, userID, url string) (*model.Document, error)
	ListDocuments(ctx context.Context, userID string) ([]model.Document, error)
	GetDocument(ctx context.Context, userID, documentID string) (*model.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID string) error
	ListQuiz(ctx context.Context, userID, documentID string) ([]model.QuizQuestion, error)
	ListFlashcards(ctx context.Context, userID, documentID string) ([]model.Flashcard, error)
}

// Trigger 判断正文是否需要生成。
type Trigger interface {
	ShouldRun(text string) bool
}

type documentService struct {
	docs       repository.DocumentRepository
	quiz       repository.QuizRepository
	cards      repository.FlashcardRepository
	worker     worker.Client
	dispatcher tasks.Dispatcher
	trigger    Trigger
	stager     storage.Stager
	serverCfg  config.ServerConfig
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	docs repository.DocumentRepository,
	quiz repository.QuizRepository,
	cards repository.FlashcardRepository,
	w worker.Client,
	dispatcher tasks.Dispatcher,
	trigger Trigger,
	stager storage.Stager,
	serverCfg config.ServerConfig,
) DocumentService {
	return &documentService{
		docs:       docs,
		quiz:       quiz,
		cards:      cards,
		worker:     w,
		dispatcher: dispatcher,
		trigger:    trigger,
		stager:     stager,
		serverCfg:  serverCfg,
	}
}

func (s *documentService) UploadDocument(ctx context.Context, userID string, file UploadedFile) (*model.Document, error) {
	if file.Filename == "" || file.Content == nil {
		return nil, fmt.Errorf("%w: no file uploaded", ErrInvalidInput)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	storedName := uuid.NewString()
	if ext != "" {
		storedName += "." + ext
	}

	// 1. 落盘
	if err := os.MkdirAll(s.serverCfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	storedPath, err := filepath.Abs(filepath.Join(s.serverCfg.UploadDir, storedName))
	if err != nil {
		return nil, err
	}
	size, err := saveFile(storedPath, file.Content)
	if err != nil {
		return nil, fmt.Errorf("保存上传文件失败: %w", err)
	}
	log.Infof("[DocumentService] 步骤1: 文件已保存, filename: %s, path: %s, size: %d", file.Filename, storedPath, size)

	// 2. 提取正文，失败时写入占位文本
	text, extractErr := s.worker.ExtractText(ctx, storedPath)
	if extractErr != nil {
		log.Warnf("[DocumentService] 步骤2: 文本提取失败, filename: %s, err: %v", file.Filename, extractErr)
		text = model.ExtractionFailedText
	} else {
		log.Infof("[DocumentService] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(text))
	}

	// 3. 创建文档
	doc := &model.Document{
		UserID:        userID,
		Filename:      file.Filename,
		FileURL:       fmt.Sprintf("%s/uploads/documents/%s", strings.TrimRight(s.serverCfg.PublicURL, "/"), storedName),
		FileSize:      size,
		SourceType:    model.SourceTypeFromExtension(ext),
		ExtractedText: text,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	log.Infof("[DocumentService] 步骤3: 文档已创建, documentID: %s", doc.ID)

	// 4. 后台生成
	if extractErr == nil {
		s.dispatch(ctx, doc)
	}
	return doc, nil
}

func (s *documentService) IngestVideo(ctx context.Context, userID, url string) (*model.Document, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: YouTube URL is required", ErrInvalidInput)
	}

	info, err := s.worker.ExtractVideo(ctx, url)
	if err != nil {
		log.Warnf("[DocumentService] 视频转写失败, url: %s, err: %v", url, err)
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}

	filename := info.Title
	if filename == "" {
		filename = "YouTube: " + info.VideoID
	}
	doc := &model.Document{
		UserID:          userID,
		Filename:        filename,
		FileURL:         url,
		FileSize:        int64(utf8.RuneCountInString(info.Text)),
		SourceType:      model.SourceYouTube,
		YoutubeVideoID:  info.VideoID,
		DurationSeconds: info.Duration,
		ExtractedText:   info.Text,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	log.Infof("[DocumentService] 视频文档已创建, documentID: %s, title: %s, 时长: %ds", doc.ID, filename, info.Duration)

	s.dispatch(ctx, doc)
	return doc, nil
}

// dispatch 在正文足够长时派发全量生成，派发失败只记录日志，不影响入库结果。
func (s *documentService) dispatch(ctx context.Context, doc *model.Document) {
	if !s.trigger.ShouldRun(doc.ExtractedText) {
		log.Infof("[DocumentService] 正文过短, 不触发生成, documentID: %s", doc.ID)
		return
	}
	task := tasks.GenerationTask{
		DocumentID:  doc.ID,
		UserID:      doc.UserID,
		Filename:    doc.Filename,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		log.Errorf("[DocumentService] 派发生成任务失败, documentID: %s, err: %v", doc.ID, err)
		return
	}
	log.Infof("[DocumentService] 已派发生成任务, documentID: %s", doc.ID)
}

func (s *documentService) ListDocuments(ctx context.Context, userID string) ([]model.Document, error) {
	return s.docs.ListByOwner(ctx, userID)
}

func (s *documentService) GetDocument(ctx context.Context, userID, documentID string) (*model.Document, error) {
	return s.docs.FindByIDAndOwner(ctx, documentID, userID)
}

func (s *documentService) DeleteDocument(ctx context.Context, userID, documentID string) error {
	if _, err := s.docs.Delete(ctx, documentID, userID); err != nil {
		return err
	}
	// 音频清理失败不影响删除结果
	if err := s.stager.Remove(ctx, documentID); err != nil {
		log.Warnf("[DocumentService] 删除播客音频失败, documentID: %s, err: %v", documentID, err)
	}
	log.Infof("[DocumentService] 文档已删除, documentID: %s", documentID)
	return nil
}

func (s *documentService) ListQuiz(ctx context.Context, userID, documentID string) ([]model.QuizQuestion, error) {
	if _, err := s.docs.FindByIDAndOwner(ctx, documentID, userID); err != nil {
		return nil, err
	}
	return s.quiz.ListByDocument(ctx, documentID)
}

func (s *documentService) ListFlashcards(ctx context.Context, userID, documentID string) ([]model.Flashcard, error) {
	if _, err := s.docs.FindByIDAndOwner(ctx, documentID, userID); err != nil {
		return nil, err
	}
	return s.cards.ListByDocument(ctx, documentID)
}

func saveFile(path string, content io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return n, nil
}

var _ Trigger = (*pipeline.Orchestrator)(nil)
