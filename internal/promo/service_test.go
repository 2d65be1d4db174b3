package promo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/adlab/internal/model"
)

type mockPromoRepo struct {
	findCodeByCodeFn       func(ctx context.Context, code string) (*model.PromoCode, error)
	consumeCodeFn          func(ctx context.Context, codeID string) (bool, error)
	createActivationFn     func(ctx context.Context, activation *model.PromoActivation) error
	findActiveActivationFn func(ctx context.Context, userID string) (*model.PromoActivation, error)
}

func (m *mockPromoRepo) FindCodeByCode(ctx context.Context, code string) (*model.PromoCode, error) {
	if m.findCodeByCodeFn != nil {
		return m.findCodeByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockPromoRepo) ConsumeCode(ctx context.Context, codeID string) (bool, error) {
	if m.consumeCodeFn != nil {
		return m.consumeCodeFn(ctx, codeID)
	}
	return true, nil
}

func (m *mockPromoRepo) CreateActivation(ctx context.Context, activation *model.PromoActivation) error {
	if m.createActivationFn != nil {
		return m.createActivationFn(ctx, activation)
	}
	return nil
}

func (m *mockPromoRepo) FindActiveActivation(ctx context.Context, userID string) (*model.PromoActivation, error) {
	if m.findActiveActivationFn != nil {
		return m.findActiveActivationFn(ctx, userID)
	}
	return nil, nil
}

func activePromoCode() *model.PromoCode {
	return &model.PromoCode{
		ID:           "code-1",
		Code:         "LAUNCH30",
		DurationDays: 30,
		MaxUses:      100,
		UsedCount:    10,
		IsActive:     true,
	}
}

func TestActivate_ValidCode_CreatesActivation(t *testing.T) {
	var created *model.PromoActivation
	repo := &mockPromoRepo{
		findCodeByCodeFn: func(_ context.Context, code string) (*model.PromoCode, error) {
			if code != "LAUNCH30" {
				t.Errorf("lookup code = %q, want LAUNCH30", code)
			}
			return activePromoCode(), nil
		},
		createActivationFn: func(_ context.Context, activation *model.PromoActivation) error {
			created = activation
			return nil
		},
	}
	svc := NewService(repo)

	activation, err := svc.Activate(context.Background(), "user-1", "LAUNCH30")
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}

	if created == nil {
		t.Fatal("expected activation to be created")
	}
	if activation.UserID != "user-1" || activation.PromoCodeID != "code-1" {
		t.Errorf("activation = %+v, want user-1/code-1", activation)
	}
	if !activation.IsActive {
		t.Error("new activation should be active")
	}

	// 期限は有効日数分
	wantExpiry := activation.ActivatedAt.AddDate(0, 0, 30)
	if !activation.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", activation.ExpiresAt, wantExpiry)
	}
}

// コードは大文字化・トリムで正規化される。
func TestActivate_NormalizesCode(t *testing.T) {
	var lookedUp string
	repo := &mockPromoRepo{
		findCodeByCodeFn: func(_ context.Context, code string) (*model.PromoCode, error) {
			lookedUp = code
			return activePromoCode(), nil
		},
	}
	svc := NewService(repo)

	if _, err := svc.Activate(context.Background(), "user-1", "  launch30 "); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if lookedUp != "LAUNCH30" {
		t.Errorf("lookup code = %q, want LAUNCH30", lookedUp)
	}
}

func TestActivate_EmptyCode_ReturnsInvalid(t *testing.T) {
	svc := NewService(&mockPromoRepo{})

	_, err := svc.Activate(context.Background(), "user-1", "   ")
	if !errors.Is(err, ErrCodeInvalid) {
		t.Errorf("Activate() error = %v, want ErrCodeInvalid", err)
	}
}

func TestActivate_UnknownCode_ReturnsInvalid(t *testing.T) {
	svc := NewService(&mockPromoRepo{})

	_, err := svc.Activate(context.Background(), "user-1", "NOPE")
	if !errors.Is(err, ErrCodeInvalid) {
		t.Errorf("Activate() error = %v, want ErrCodeInvalid", err)
	}
}

func TestActivate_DeactivatedCode_ReturnsInvalid(t *testing.T) {
	repo := &mockPromoRepo{
		findCodeByCodeFn: func(_ context.Context, code string) (*model.PromoCode, error) {
			c := activePromoCode()
			c.IsActive = false
			return c, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.Activate(context.Background(), "user-1", "LAUNCH30")
	if !errors.Is(err, ErrCodeInvalid) {
		t.Errorf("Activate() error = %v, want ErrCodeInvalid", err)
	}
}

// 条件付きUPDATEが失敗した場合は上限到達として扱う。
func TestActivate_ConsumeFails_ReturnsExhausted(t *testing.T) {
	createCalled := false
	repo := &mockPromoRepo{
		findCodeByCodeFn: func(_ context.Context, code string) (*model.PromoCode, error) {
			return activePromoCode(), nil
		},
		consumeCodeFn: func(_ context.Context, codeID string) (bool, error) {
			return false, nil
		},
		createActivationFn: func(_ context.Context, _ *model.PromoActivation) error {
			createCalled = true
			return nil
		},
	}
	svc := NewService(repo)

	_, err := svc.Activate(context.Background(), "user-1", "LAUNCH30")
	if !errors.Is(err, ErrCodeExhausted) {
		t.Errorf("Activate() error = %v, want ErrCodeExhausted", err)
	}
	if createCalled {
		t.Error("no activation should be created when the code is exhausted")
	}
}

// 既に有効な特典を持つユーザーはコードを重ねて引き換えられない。
func TestActivate_AlreadyActive_ReturnsAlreadyActive(t *testing.T) {
	consumeCalled := false
	repo := &mockPromoRepo{
		findActiveActivationFn: func(_ context.Context, userID string) (*model.PromoActivation, error) {
			return &model.PromoActivation{
				ID:        "act-1",
				UserID:    userID,
				ExpiresAt: time.Now().Add(24 * time.Hour),
				IsActive:  true,
			}, nil
		},
		consumeCodeFn: func(_ context.Context, codeID string) (bool, error) {
			consumeCalled = true
			return true, nil
		},
	}
	svc := NewService(repo)

	_, err := svc.Activate(context.Background(), "user-1", "LAUNCH30")
	if !errors.Is(err, ErrAlreadyActive) {
		t.Errorf("Activate() error = %v, want ErrAlreadyActive", err)
	}
	if consumeCalled {
		t.Error("code must not be consumed when the user already has active access")
	}
}

func TestActiveAccess_ReturnsActivation(t *testing.T) {
	repo := &mockPromoRepo{
		findActiveActivationFn: func(_ context.Context, userID string) (*model.PromoActivation, error) {
			return &model.PromoActivation{ID: "act-1", UserID: userID, IsActive: true}, nil
		},
	}
	svc := NewService(repo)

	activation, err := svc.ActiveAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ActiveAccess() error = %v", err)
	}
	if activation == nil || activation.ID != "act-1" {
		t.Errorf("activation = %+v, want act-1", activation)
	}
}

func TestActiveAccess_NoActivation_ReturnsNil(t *testing.T) {
	svc := NewService(&mockPromoRepo{})

	activation, err := svc.ActiveAccess(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ActiveAccess() error = %v", err)
	}
	if activation != nil {
		t.Errorf("expected nil activation, got %+v", activation)
	}
}
