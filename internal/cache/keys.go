package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	userKeyPrefix           = "user:%s"
	postKeyPrefix           = "post:%s"
	usersListKey            = "users:list"
	postsPagePrefix         = "posts:page:%d:limit:%d"
	userPostsPrefix         = "user:%s:posts"
	friendRequestsKeyPrefix = "friendRequests:%s"
	recentPostsKey          = "posts:recent"
)

// TTLs per entity. A cache hit is trusted for the remainder of its TTL even
// when another code path mutated the store without invalidating the key.
const (
	UserTTL           = time.Hour
	UserShortTTL      = 10 * time.Minute
	PostTTL           = time.Hour
	UsersListTTL      = 5 * time.Minute
	PostsPageTTL      = 5 * time.Minute
	FriendRequestsTTL = 10 * time.Minute
)

func UserKey(email string) string {
	return fmt.Sprintf(userKeyPrefix, email)
}

func PostKey(postID string) string {
	return fmt.Sprintf(postKeyPrefix, postID)
}

func UsersListKey() string {
	return usersListKey
}

func PostsPageKey(page, limit int64) string {
	return fmt.Sprintf(postsPagePrefix, page, limit)
}

func UserPostsKey(email string) string {
	return fmt.Sprintf(userPostsPrefix, email)
}

func FriendRequestsKey(userID string) string {
	return fmt.Sprintf(friendRequestsKeyPrefix, userID)
}

func RecentPostsKey() string {
	return recentPostsKey
}

func Invalidate(ctx context.Context, keys ...string) {
	if client == nil {
		return
	}
	for _, key := range keys {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, email string) {
	Invalidate(ctx, UserKey(email))
}

// InvalidatePostLists drops the feed caches that embed the given author's
// posts. Only the first default page is tracked, matching what post
// creation actually invalidates.
func InvalidatePostLists(ctx context.Context, email string) {
	Invalidate(ctx,
		UserPostsKey(email),
		RecentPostsKey(),
		PostsPageKey(1, 10),
	)
}
