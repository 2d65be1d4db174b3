// Package adcopy は広告コピー文書の管理と生成を提供する。
package adcopy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/repository"
	"github.com/hitoshi/adlab/internal/security"
)

var (
	// ErrNotFound は文書が存在しないか、他ユーザーの所有であることを表す。
	ErrNotFound = errors.New("ad document not found")
	// ErrInvalidInput は入力の不備を表す。
	ErrInvalidInput = errors.New("invalid ad document input")
)

// titleMaxLength はタイトルの最大文字数。
const titleMaxLength = 200

// Service は広告コピー文書のビジネスロジックを提供する。
// 本文HTMLは書き込みのたびに必ずサニタイズされる。
type Service struct {
	repo      repository.AdDocumentRepository
	sanitizer security.ContentSanitizerService
	generator Generator
}

// NewService はServiceを生成する。
func NewService(
	repo repository.AdDocumentRepository,
	sanitizer security.ContentSanitizerService,
	generator Generator,
) *Service {
	return &Service{repo: repo, sanitizer: sanitizer, generator: generator}
}

// DocumentInput は文書の作成・更新の入力。
type DocumentInput struct {
	Title    string
	BodyHTML string
	Tone     string
}

func (in DocumentInput) validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" || len([]rune(title)) > titleMaxLength {
		return ErrInvalidInput
	}
	return nil
}

// Create は文書を作成する。
func (s *Service) Create(ctx context.Context, userID string, input DocumentInput) (*model.AdDocument, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &model.AdDocument{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     strings.TrimSpace(input.Title),
		BodyHTML:  s.sanitizer.Sanitize(input.BodyHTML),
		Tone:      input.Tone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create ad document: %w", err)
	}

	slog.Info("ad document created",
		slog.String("document_id", doc.ID),
		slog.String("user_id", userID),
	)

	return doc, nil
}

// Get は文書を取得する。所有者以外にはErrNotFoundを返し、存在の有無を漏らさない。
func (s *Service) Get(ctx context.Context, userID, docID string) (*model.AdDocument, error) {
	doc, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to find ad document: %w", err)
	}
	if doc == nil || doc.UserID != userID {
		return nil, ErrNotFound
	}
	return doc, nil
}

// List はユーザーの文書一覧を更新日時の降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.AdDocument, error) {
	docs, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ad documents: %w", err)
	}
	return docs, nil
}

// Update は文書を更新する。
func (s *Service) Update(ctx context.Context, userID, docID string, input DocumentInput) (*model.AdDocument, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	doc, err := s.Get(ctx, userID, docID)
	if err != nil {
		return nil, err
	}

	doc.Title = strings.TrimSpace(input.Title)
	doc.BodyHTML = s.sanitizer.Sanitize(input.BodyHTML)
	doc.Tone = input.Tone
	doc.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update ad document: %w", err)
	}

	return doc, nil
}

// Delete は文書を削除する。
func (s *Service) Delete(ctx context.Context, userID, docID string) error {
	doc, err := s.Get(ctx, userID, docID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("failed to delete ad document: %w", err)
	}

	slog.Info("ad document deleted",
		slog.String("document_id", doc.ID),
		slog.String("user_id", userID),
	)

	return nil
}

// Generate は広告コピーを生成し、文書として保存して返す。
// 生成結果もサニタイズ工程を通す。
func (s *Service) Generate(ctx context.Context, userID string, input GenerateInput) (*model.AdDocument, error) {
	if strings.TrimSpace(input.Product) == "" {
		return nil, ErrInvalidInput
	}

	title, bodyHTML, err := s.generator.Generate(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ad copy: %w", err)
	}

	return s.Create(ctx, userID, DocumentInput{
		Title:    title,
		BodyHTML: bodyHTML,
		Tone:     input.Tone,
	})
}
