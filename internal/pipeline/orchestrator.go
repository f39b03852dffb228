package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"studyai-go/internal/config"
	"studyai-go/internal/repository"
	"studyai-go/pkg/log"
	"studyai-go/pkg/tasks"
)

// StageOutcome 记录一次阶段执行的结果，Err 为 nil 表示成功。
type StageOutcome struct {
	Stage    Stage
	Err      error
	Duration time.Duration
}

// RunReport 汇总一次全量生成。Skipped 为 true 表示正文过短，没有执行任何阶段；
// Aborted 为 true 表示文档在生成期间被删除，剩余阶段没有执行。
type RunReport struct {
	DocumentID string
	Skipped    bool
	Aborted    bool
	Outcomes   []StageOutcome
}

// Failed 返回执行失败的阶段。
func (r RunReport) Failed() []Stage {
	var failed []Stage
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o.Stage)
		}
	}
	return failed
}

// Orchestrator 按固定顺序执行所有生成阶段，并实现 tasks.Processor 供派发器调用。
type Orchestrator struct {
	executors map[Stage]Executor
	docs      repository.DocumentRepository
	locks     repository.StageLockRepository
	cfg       config.PipelineConfig
}

// NewOrchestrator 创建编排器，executors 需覆盖 Stages 中的每个阶段。
func NewOrchestrator(
	cfg config.PipelineConfig,
	docs repository.DocumentRepository,
	locks repository.StageLockRepository,
	executors ...Executor,
) *Orchestrator {
	m := make(map[Stage]Executor, len(executors))
	for _, e := range executors {
		m[e.Stage()] = e
	}
	if locks == nil || !cfg.StageLock.Enabled {
		locks = repository.NewNoopStageLockRepository()
	}
	return &Orchestrator{executors: m, docs: docs, locks: locks, cfg: cfg}
}

// ShouldRun 判断正文长度（按字符计）是否超过触发生成的阈值。
func (o *Orchestrator) ShouldRun(text string) bool {
	return utf8.RuneCountInString(text) > o.cfg.MinTextLength
}

// RunAll 依次执行笔记、测验、闪卡、播客四个阶段。
// 任一阶段失败或 panic 只记录日志，后续阶段照常执行；调用方的取消不会中断生成。
func (o *Orchestrator) RunAll(ctx context.Context, documentID, text, filename string) RunReport {
	ctx = context.WithoutCancel(ctx)
	report := RunReport{DocumentID: documentID}

	if !o.ShouldRun(text) {
		log.Infof("[Orchestrator] 正文长度 %d 未超过阈值 %d, 跳过生成, documentID: %s",
			utf8.RuneCountInString(text), o.cfg.MinTextLength, documentID)
		report.Skipped = true
		return report
	}

	log.Infof("[Orchestrator] 开始全量生成, documentID: %s, filename: %s", documentID, filename)
	start := time.Now()
	in := Input{DocumentID: documentID, Text: text, Filename: filename}
	for i, stage := range Stages {
		stageStart := time.Now()
		err := o.RunStage(ctx, stage, in)
		outcome := StageOutcome{Stage: stage, Err: err, Duration: time.Since(stageStart)}
		report.Outcomes = append(report.Outcomes, outcome)
		if errors.Is(err, repository.ErrDocumentNotFound) {
			log.Warnf("[Orchestrator] 步骤%d: 文档已被删除, 终止剩余阶段, documentID: %s", i+1, documentID)
			report.Aborted = true
			break
		}
		if err != nil {
			log.Errorf("[Orchestrator] 步骤%d: %s 阶段失败, documentID: %s, err: %v", i+1, stage, documentID, err)
			continue
		}
		log.Infof("[Orchestrator] 步骤%d: %s 阶段完成, documentID: %s, 耗时: %s", i+1, stage, documentID, outcome.Duration)
	}

	log.Infof("[Orchestrator] 全量生成结束, documentID: %s, 失败阶段: %v, 总耗时: %s",
		documentID, report.Failed(), time.Since(start))
	return report
}

// RunStage 执行单个阶段。开启阶段锁时，同一 (文档, 阶段) 已有执行在进行则返回 ErrStageBusy；
// 锁服务不可用时不加锁继续执行，退化为以最后写入者为准。阶段内的 panic 被转换为错误返回。
func (o *Orchestrator) RunStage(ctx context.Context, stage Stage, in Input) (err error) {
	exec, ok := o.executors[stage]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	unlock, acquired, lockErr := o.locks.TryLock(ctx, in.DocumentID, string(stage), o.cfg.StageLock.TTL)
	switch {
	case lockErr != nil:
		log.Warnf("[Orchestrator] 获取阶段锁失败, 不加锁继续执行 %s, documentID: %s, err: %v", stage, in.DocumentID, lockErr)
	case !acquired:
		return fmt.Errorf("%w: %s/%s", ErrStageBusy, in.DocumentID, stage)
	default:
		defer unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s stage panicked: %v", stage, r)
		}
	}()
	return exec.Execute(ctx, in)
}

// Process 读取任务对应的文档正文并执行全量生成。
// 只有文档无法读取时才返回错误，阶段失败体现在日志中。
func (o *Orchestrator) Process(ctx context.Context, task tasks.GenerationTask) error {
	doc, err := o.docs.FindByID(ctx, task.DocumentID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", task.DocumentID, err)
	}
	o.RunAll(ctx, doc.ID, doc.ExtractedText, doc.Filename)
	return nil
}
