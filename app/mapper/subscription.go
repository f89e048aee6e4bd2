package mapper

import (
	"github.com/vibast-solutions/ms-go-memberships/app/entity"
	"github.com/vibast-solutions/ms-go-memberships/app/types"
)

func SubscriptionToResponse(item *entity.Subscription) *types.Subscription {
	if item == nil {
		return nil
	}

	return &types.Subscription{
		Id:               item.ID,
		Username:         item.Username,
		Email:            item.Email,
		Title:            item.Title,
		SourceKey:        item.SourceKey,
		CurrentEpisodes:  item.CurrentEpisodes,
		NotifiedEpisodes: item.NotifiedEpisodes,
		Status:           item.Status,
		LastChecked:      formatTime(item.LastChecked),
		CreatedAt:        formatTime(item.CreatedAt),
	}
}

func SubscriptionsToResponse(items []*entity.Subscription) []*types.Subscription {
	result := make([]*types.Subscription, 0, len(items))
	for _, item := range items {
		result = append(result, SubscriptionToResponse(item))
	}
	return result
}
