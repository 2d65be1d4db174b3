package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/adlab/internal/adcopy"
	"github.com/hitoshi/adlab/internal/middleware"
	"github.com/hitoshi/adlab/internal/model"
)

// AdCopyHandler は広告コピー文書のHTTPハンドラー。
type AdCopyHandler struct {
	service *adcopy.Service
}

// NewAdCopyHandler はAdCopyHandlerを生成する。
func NewAdCopyHandler(service *adcopy.Service) *AdCopyHandler {
	return &AdCopyHandler{service: service}
}

// documentRequest は文書の作成・更新リクエストのボディ。
type documentRequest struct {
	Title    string `json:"title"`
	BodyHTML string `json:"bodyHtml"`
	Tone     string `json:"tone"`
}

// generateRequest は広告コピー生成リクエストのボディ。
type generateRequest struct {
	Product  string `json:"product"`
	Audience string `json:"audience"`
	Tone     string `json:"tone"`
}

// documentResponse は文書のAPIレスポンス。
type documentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	BodyHTML  string    `json:"bodyHtml"`
	Tone      string    `json:"tone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toDocumentResponse(doc *model.AdDocument) documentResponse {
	return documentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		BodyHTML:  doc.BodyHTML,
		Tone:      doc.Tone,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// List はユーザーの文書一覧を返す。
// GET /api/adcopy
func (h *AdCopyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	docs, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]documentResponse, len(docs))
	for i, doc := range docs {
		results[i] = toDocumentResponse(doc)
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"documents": results,
	})
}

// Create は文書を作成する。
// POST /api/adcopy
func (h *AdCopyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	doc, err := h.service.Create(r.Context(), userID, adcopy.DocumentInput{
		Title:    req.Title,
		BodyHTML: req.BodyHTML,
		Tone:     req.Tone,
	})
	if err != nil {
		writeAdCopyError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toDocumentResponse(doc))
}

// Get は文書を取得する。
// GET /api/adcopy/{id}
func (h *AdCopyHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	doc, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeAdCopyError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toDocumentResponse(doc))
}

// Update は文書を更新する。
// PUT /api/adcopy/{id}
func (h *AdCopyHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	doc, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), adcopy.DocumentInput{
		Title:    req.Title,
		BodyHTML: req.BodyHTML,
		Tone:     req.Tone,
	})
	if err != nil {
		writeAdCopyError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toDocumentResponse(doc))
}

// Delete は文書を削除する。
// DELETE /api/adcopy/{id}
func (h *AdCopyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeAdCopyError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// Generate は広告コピーを生成し、文書として保存して返す。
// POST /api/adcopy/generate
func (h *AdCopyHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	doc, err := h.service.Generate(r.Context(), userID, adcopy.GenerateInput{
		Product:  req.Product,
		Audience: req.Audience,
		Tone:     req.Tone,
	})
	if err != nil {
		writeAdCopyError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toDocumentResponse(doc))
}

// writeAdCopyError は文書サービスのエラーをHTTPレスポンスに変換する。
func writeAdCopyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, adcopy.ErrNotFound):
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewDocumentNotFoundError(chi.URLParam(r, "id")))
	case errors.Is(err, adcopy.ErrInvalidInput):
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("タイトルまたは入力内容を確認してください"))
	default:
		handleServiceError(w, err)
	}
}
