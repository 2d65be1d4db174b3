// Package promo はプロモーションコードの引き換えを提供する。
package promo

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
)

// 引き換え失敗の分類。
var (
	// ErrCodeInvalid はコードが存在しないか無効化済みであることを表す。
	ErrCodeInvalid = errors.New("promo code invalid")
	// ErrCodeExhausted はコードの利用上限到達を表す。
	ErrCodeExhausted = errors.New("promo code exhausted")
	// ErrAlreadyActive は利用者が既に有効なプロモ特典を持つことを表す。
	ErrAlreadyActive = errors.New("promo access already active")
)

// Service はプロモーションコードのビジネスロジックを提供する。
type Service struct {
	repo repository.PromoRepository
}

// NewService はServiceを生成する。
func NewService(repo repository.PromoRepository) *Service {
	return &Service{repo: repo}
}

// Activate はコードを引き換え、利用者にプロモ特典を付与する。
//
// 利用回数のカウントはストレージ層の条件付きUPDATEで行われるため、
// 並行する引き換えが上限を超えてカウントすることはない。
// コードの正規化は大文字化とトリムのみ。
func (s *Service) Activate(ctx context.Context, userID, rawCode string) (*model.PromoActivation, error) {
	code := strings.ToUpper(strings.TrimSpace(rawCode))
	if code == "" {
		return nil, ErrCodeInvalid
	}

	existing, err := s.repo.FindActiveActivation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find active activation: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyActive
	}

	promoCode, err := s.repo.FindCodeByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to find promo code: %w", err)
	}
	if promoCode == nil || !promoCode.IsActive {
		return nil, ErrCodeInvalid
	}

	ok, err := s.repo.ConsumeCode(ctx, promoCode.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume promo code: %w", err)
	}
	if !ok {
		// 上限到達、または並行する引き換えで直前に使い切られた
		return nil, ErrCodeExhausted
	}

	now := time.Now()
	activation := &model.PromoActivation{
		ID:          uuid.New().String(),
		UserID:      userID,
		PromoCodeID: promoCode.ID,
		ActivatedAt: now,
		ExpiresAt:   now.AddDate(0, 0, promoCode.DurationDays),
		IsActive:    true,
	}

	if err := s.repo.CreateActivation(ctx, activation); err != nil {
		return nil, fmt.Errorf("failed to create activation: %w", err)
	}

	slog.Info("promo code activated",
		slog.String("user_id", userID),
		slog.String("promo_code_id", promoCode.ID),
		slog.Int("duration_days", promoCode.DurationDays),
	)

	return activation, nil
}

// ActiveAccess は利用者の有効なプロモ特典を返す。存在しない場合はnilを返す。
func (s *Service) ActiveAccess(ctx context.Context, userID string) (*model.PromoActivation, error) {
	activation, err := s.repo.FindActiveActivation(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find active activation: %w", err)
	}
	return activation, nil
}
