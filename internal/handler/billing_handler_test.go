package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/adlab/internal/billing"
	"github.com/hitoshi/adlab/internal/model"
	"github.com/hitoshi/adlab/internal/promo"
)

type mockSubscriptionRepo struct {
	findActiveByUserIDFn func(ctx context.Context, userID string) (*model.Subscription, error)
}

func (m *mockSubscriptionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	if m.findActiveByUserIDFn != nil {
		return m.findActiveByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func newBillingTestHandler(subs *mockSubscriptionRepo, promoRepo *mockPromoRepo) *BillingHandler {
	return NewBillingHandler(billing.NewService(subs, promo.NewService(promoRepo)))
}

func TestBillingHandler_Status_WithSubscription(t *testing.T) {
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	subs := &mockSubscriptionRepo{
		findActiveByUserIDFn: func(_ context.Context, userID string) (*model.Subscription, error) {
			return &model.Subscription{
				ID:               "sub-1",
				UserID:           userID,
				Plan:             "pro",
				Status:           model.SubscriptionActive,
				CurrentPeriodEnd: periodEnd,
			}, nil
		},
	}
	h := newBillingTestHandler(subs, &mockPromoRepo{})

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/billing/status", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}

	var body struct {
		Plan        string     `json:"plan"`
		Status      string     `json:"status"`
		AccessUntil *time.Time `json:"accessUntil"`
		Source      string     `json:"source"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	if body.Plan != "pro" || body.Status != "active" || body.Source != "subscription" {
		t.Errorf("body = %+v", body)
	}
	if body.AccessUntil == nil || !body.AccessUntil.Equal(periodEnd) {
		t.Errorf("accessUntil = %v, want %v", body.AccessUntil, periodEnd)
	}
}

func TestBillingHandler_Status_PromoOnly(t *testing.T) {
	promoRepo := &mockPromoRepo{
		findActiveActivationFn: func(_ context.Context, userID string) (*model.PromoActivation, error) {
			return &model.PromoActivation{
				ID:        "act-1",
				UserID:    userID,
				ExpiresAt: time.Now().Add(10 * 24 * time.Hour),
				IsActive:  true,
			}, nil
		},
	}
	h := newBillingTestHandler(&mockSubscriptionRepo{}, promoRepo)

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/billing/status", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := decodeJSONMap(t, rec)
	if body["plan"] != "promo" || body["status"] != "active" || body["source"] != "promo" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["accessUntil"]; !ok {
		t.Error("promo access should carry accessUntil")
	}
}

// 購読もプロモもない場合、accessUntilはレスポンスから省略される。
func TestBillingHandler_Status_Free_OmitsAccessUntil(t *testing.T) {
	h := newBillingTestHandler(&mockSubscriptionRepo{}, &mockPromoRepo{})

	req := withUserID(httptest.NewRequest(http.MethodGet, "/api/billing/status", nil), "user-1")
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	raw := rec.Body.String()
	if strings.Contains(raw, "accessUntil") {
		t.Errorf("accessUntil should be omitted, got %s", raw)
	}

	body := decodeJSONMap(t, rec)
	if body["plan"] != "free" || body["status"] != "none" || body["source"] != "none" {
		t.Errorf("body = %v", body)
	}
}

func TestBillingHandler_Status_WithoutUser_Returns401(t *testing.T) {
	h := newBillingTestHandler(&mockSubscriptionRepo{}, &mockPromoRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/billing/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
