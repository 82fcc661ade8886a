package moderation

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemberDirectory caches member statuses looked up on the platform.
type MemberDirectory struct {
	platform Platform
	timeout  time.Duration
	cache    *expirable.LRU[activityKey, MemberStatus]
}

func NewMemberDirectory(platform Platform, size int, ttl, timeout time.Duration) *MemberDirectory {
	return &MemberDirectory{
		platform: platform,
		timeout:  timeout,
		cache:    expirable.NewLRU[activityKey, MemberStatus](size, nil, ttl),
	}
}

func (d *MemberDirectory) Status(ctx context.Context, chatID, userID int64) (MemberStatus, error) {
	key := activityKey{chatID, userID}
	if status, ok := d.cache.Get(key); ok {
		return status, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	status, err := d.platform.GetChatMember(callCtx, chatID, userID)
	if err != nil {
		return "", err
	}
	d.cache.Add(key, status)
	return status, nil
}

func (d *MemberDirectory) Set(chatID, userID int64, status MemberStatus) {
	d.cache.Add(activityKey{chatID, userID}, status)
}

func (d *MemberDirectory) Invalidate(chatID, userID int64) {
	d.cache.Remove(activityKey{chatID, userID})
}
