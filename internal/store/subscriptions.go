package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dieworks-backend/internal/model"
)

// UpsertSubscription creates or replaces a subscription and the set of work
// centers it listens to.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription, workCenterIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		centers, err := findWorkCenters(tx, workCenterIDs)
		if err != nil {
			return err
		}
		if sub.CreatedAt.IsZero() {
			sub.CreatedAt = s.now()
		}
		if err := tx.Omit("WorkCenters").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}

		refs := make([]*model.WorkCenter, len(centers))
		for i := range centers {
			refs[i] = &centers[i]
		}
		assoc := tx.Model(sub).Association("WorkCenters")
		if len(refs) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(refs)
		}
		if err != nil {
			return fmt.Errorf("save subscription work centers: %w", err)
		}
		sub.WorkCenters = refs
		return nil
	})
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).Preload("WorkCenters").First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, dbErr(err, "subscription")
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("WorkCenters").Clear(); err != nil {
			return fmt.Errorf("clear subscription work centers: %w", err)
		}
		if err := tx.Delete(&sub).Error; err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}
		return nil
	})
}

func (s *gormStore) SubscriptionsForWorkCenter(ctx context.Context, workCenterID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_work_centers swc ON swc.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("swc.work_center_id = ?", workCenterID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list subscriptions of work center %d: %w", workCenterID, err)
	}
	return subs, nil
}
