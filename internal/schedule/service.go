// Package schedule は予約受付時間帯のドメインロジックを提供する。
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/ignitecall/internal/model"
	"github.com/hitoshi/ignitecall/internal/repository"
)

// minutesPerDay は1日の分数。時刻は0時からの経過分で表す。
const minutesPerDay = 24 * 60

// Service は予約受付時間帯のサービス層。
type Service struct {
	intervalRepo repository.TimeIntervalRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(intervalRepo repository.TimeIntervalRepository) *Service {
	return &Service{
		intervalRepo: intervalRepo,
	}
}

// CreateIntervals はユーザーの予約受付時間帯を検証して登録する。
// 全件を同一トランザクションで挿入し、1件でも無効なら何も登録しない。
func (s *Service) CreateIntervals(ctx context.Context, userID string, intervals []model.UserTimeInterval) error {
	now := time.Now()
	records := make([]*model.UserTimeInterval, len(intervals))
	for i, interval := range intervals {
		if err := validateInterval(interval); err != nil {
			return err
		}
		records[i] = &model.UserTimeInterval{
			ID:                 uuid.New().String(),
			UserID:             userID,
			WeekDay:            interval.WeekDay,
			TimeStartInMinutes: interval.TimeStartInMinutes,
			TimeEndInMinutes:   interval.TimeEndInMinutes,
			CreatedAt:          now,
		}
	}

	if err := s.intervalRepo.CreateMany(ctx, records); err != nil {
		return fmt.Errorf("時間帯の登録に失敗しました: %w", err)
	}

	slog.Info("time intervals created",
		slog.String("user_id", userID),
		slog.Int("count", len(records)),
	)

	return nil
}

// ListIntervals はユーザーの時間帯一覧をweek_day昇順で返す。
func (s *Service) ListIntervals(ctx context.Context, userID string) ([]*model.UserTimeInterval, error) {
	intervals, err := s.intervalRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("時間帯の取得に失敗しました: %w", err)
	}
	return intervals, nil
}

// validateInterval は1件の時間帯を検証する。
func validateInterval(interval model.UserTimeInterval) error {
	if interval.WeekDay < 0 || interval.WeekDay > 6 {
		return model.NewInvalidTimeIntervalError(fmt.Sprintf("曜日が範囲外です: %d", interval.WeekDay))
	}
	if interval.TimeStartInMinutes < 0 || interval.TimeStartInMinutes > minutesPerDay {
		return model.NewInvalidTimeIntervalError(fmt.Sprintf("開始時刻が範囲外です: %d", interval.TimeStartInMinutes))
	}
	if interval.TimeEndInMinutes < 0 || interval.TimeEndInMinutes > minutesPerDay {
		return model.NewInvalidTimeIntervalError(fmt.Sprintf("終了時刻が範囲外です: %d", interval.TimeEndInMinutes))
	}
	if interval.TimeEndInMinutes <= interval.TimeStartInMinutes {
		return model.NewInvalidTimeIntervalError("終了時刻は開始時刻より後である必要があります")
	}
	return nil
}
