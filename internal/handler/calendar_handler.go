package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	gcal "google.golang.org/api/calendar/v3"

	"github.com/hitoshi/ignitecall/internal/middleware"
	"github.com/hitoshi/ignitecall/internal/model"
)

// CalendarFactoryInterface はカレンダーハンドラーが必要とするインターフェース。
// 資格情報の取得とリフレッシュはこの呼び出しの内側で行われる。
type CalendarFactoryInterface interface {
	ServiceForUser(ctx context.Context, userID string) (*gcal.Service, error)
}

// CalendarHandler はGoogleカレンダー連携状態のHTTPハンドラー。
type CalendarHandler struct {
	factory CalendarFactoryInterface
}

// NewCalendarHandler はCalendarHandlerを生成する。
func NewCalendarHandler(factory CalendarFactoryInterface) *CalendarHandler {
	return &CalendarHandler{
		factory: factory,
	}
}

// Connection はカレンダー連携の状態を返す。
// GET /api/calendar/connection
// 認可済みクライアントの構築を試みることで、連携の有無と
// トークンの使用可能性（必要ならリフレッシュ）を検証する。
func (h *CalendarHandler) Connection(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")

	_, err = h.factory.ServiceForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrNoLinkedAccount) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"connected": false,
				"reason":    model.ErrCodeNoLinkedAccount,
			})
			return
		}
		handleServiceError(w, err)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"connected": true,
	})
}
