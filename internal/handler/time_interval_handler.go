package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/ignitecall/internal/middleware"
	"github.com/hitoshi/ignitecall/internal/model"
)

// TimeIntervalServiceInterface は時間帯ハンドラーが必要とするサービスインターフェース。
type TimeIntervalServiceInterface interface {
	// CreateIntervals はユーザーの予約受付時間帯を登録する。
	CreateIntervals(ctx context.Context, userID string, intervals []model.UserTimeInterval) error
	// ListIntervals はユーザーの時間帯一覧を返す。
	ListIntervals(ctx context.Context, userID string) ([]*model.UserTimeInterval, error)
}

// TimeIntervalHandler は予約受付時間帯のHTTPハンドラー。
type TimeIntervalHandler struct {
	service TimeIntervalServiceInterface
}

// NewTimeIntervalHandler はTimeIntervalHandlerを生成する。
func NewTimeIntervalHandler(service TimeIntervalServiceInterface) *TimeIntervalHandler {
	return &TimeIntervalHandler{
		service: service,
	}
}

// timeIntervalRequest は時間帯登録リクエストの1要素。
type timeIntervalRequest struct {
	WeekDay            int `json:"weekDay"`
	TimeStartInMinutes int `json:"timeStartInMinutes"`
	TimeEndInMinutes   int `json:"timeEndInMinutes"`
}

// createIntervalsRequest は時間帯登録リクエストのボディ。
type createIntervalsRequest struct {
	Intervals []timeIntervalRequest `json:"intervals"`
}

// timeIntervalResponse は時間帯情報のAPIレスポンス。
type timeIntervalResponse struct {
	ID                 string `json:"id"`
	WeekDay            int    `json:"weekDay"`
	TimeStartInMinutes int    `json:"timeStartInMinutes"`
	TimeEndInMinutes   int    `json:"timeEndInMinutes"`
}

// CreateIntervals は曜日ごとの予約受付時間帯を登録する。
// POST /api/users/time-intervals
// 成功時は201を返し、ボディは空。
func (h *TimeIntervalHandler) CreateIntervals(w http.ResponseWriter, r *http.Request) {
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

	var req createIntervalsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "リクエスト形式を確認してください。",
		})
		return
	}

	intervals := make([]model.UserTimeInterval, len(req.Intervals))
	for i, in := range req.Intervals {
		intervals[i] = model.UserTimeInterval{
			WeekDay:            in.WeekDay,
			TimeStartInMinutes: in.TimeStartInMinutes,
			TimeEndInMinutes:   in.TimeEndInMinutes,
		}
	}

	if err := h.service.CreateIntervals(r.Context(), userID, intervals); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// ListIntervals はユーザーの予約受付時間帯の一覧を返す。
// GET /api/users/time-intervals
func (h *TimeIntervalHandler) ListIntervals(w http.ResponseWriter, r *http.Request) {
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

	intervals, err := h.service.ListIntervals(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]timeIntervalResponse, len(intervals))
	for i, interval := range intervals {
		results[i] = timeIntervalResponse{
			ID:                 interval.ID,
			WeekDay:            interval.WeekDay,
			TimeStartInMinutes: interval.TimeStartInMinutes,
			TimeEndInMinutes:   interval.TimeEndInMinutes,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"intervals": results,
	})
}
