package intake

import (
	"context"
	"errors"
	"time"

	"meal-intake/internal/core/profile"
	"meal-intake/internal/pkg/common"

	"go.uber.org/zap"
)

// ConstraintStatus 限制解析狀態，讓呼叫端區分「沒有警告」與「限制未知」
type ConstraintStatus string

const (
	ConstraintsResolved    ConstraintStatus = "resolved"
	ConstraintsAnonymous   ConstraintStatus = "anonymous"
	ConstraintsNotFound    ConstraintStatus = "not_found"
	ConstraintsUnavailable ConstraintStatus = "unavailable"
)

// Constraints 一次請求使用的限制
type Constraints struct {
	Status ConstraintStatus `json:"status"`
	Terms  Restrictions     `json:"terms"`
}

// ConstraintProvider 每次請求重新讀取使用者的飲食限制與過敏
// 查不到或查詢失敗時退化為空集合，不會讓請求失敗
type ConstraintProvider struct {
	store   profile.Store
	timeout time.Duration
}

// NewConstraintProvider 創建限制提供者
func NewConstraintProvider(store profile.Store, timeout time.Duration) *ConstraintProvider {
	return &ConstraintProvider{store: store, timeout: timeout}
}

// Resolve 回傳去重後的限制詞（飲食限制在前，過敏在後）
func (p *ConstraintProvider) Resolve(ctx context.Context, userID string) Constraints {
	if userID == "" {
		return Constraints{Status: ConstraintsAnonymous, Terms: Restrictions{}}
	}
	if p == nil || p.store == nil {
		return Constraints{Status: ConstraintsUnavailable, Terms: Restrictions{}}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prof, err := p.store.Get(ctx, userID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return Constraints{Status: ConstraintsNotFound, Terms: Restrictions{}}
	case err != nil:
		common.LogWarn("讀取使用者限制失敗，視為無限制",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return Constraints{Status: ConstraintsUnavailable, Terms: Restrictions{}}
	}

	return Constraints{
		Status: ConstraintsResolved,
		Terms:  NewRestrictions(prof.DietaryRestrictions, prof.Allergies),
	}
}
