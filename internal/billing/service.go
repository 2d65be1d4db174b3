// Package billing はサブスクリプション状態の参照を提供する。
// 決済処理そのものは外部で行われ、本パッケージは状態の読み取りに徹する。
package billing

import (
	"context"
	"fmt"

	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/promo"
	"github.com/hitoshi/adlab/internal/repository"
)

// Service は利用者の有料アクセス状態を解決する。
type Service struct {
	subs  repository.SubscriptionRepository
	promo *promo.Service
}

// NewService はServiceを生成する。
func NewService(subs repository.SubscriptionRepository, promo *promo.Service) *Service {
	return &Service{subs: subs, promo: promo}
}

// Status は利用者のアクセス状態を返す。
// サブスクリプションとプロモ特典の両方が有効な場合はサブスクリプションを優先する。
func (s *Service) Status(ctx context.Context, userID string) (*model.AccessStatus, error) {
	sub, err := s.subs.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	if sub != nil {
		return &model.AccessStatus{
			Plan:        sub.Plan,
			Status:      string(sub.Status),
			AccessUntil: &sub.CurrentPeriodEnd,
			Source:      model.AccessSourceSubscription,
		}, nil
	}

	activation, err := s.promo.ActiveAccess(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find promo access: %w", err)
	}
	if activation != nil {
		return &model.AccessStatus{
			Plan:        "promo",
			Status:      string(model.SubscriptionActive),
			AccessUntil: &activation.ExpiresAt,
			Source:      model.AccessSourcePromo,
		}, nil
	}

	return &model.AccessStatus{
		Plan:   "free",
		Status: "none",
		Source: model.AccessSourceNone,
	}, nil
}
