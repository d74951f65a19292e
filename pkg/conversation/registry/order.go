package registry

import (
	"sort"

	"arcane-chat-be/internal/entity"
)

// SortThreads orders threads by last activity, newest first. Ties fall back
// to creation time, then id, so the order is total.
func SortThreads(threads []*entity.ChatThread) {
	sort.SliceStable(threads, func(i, j int) bool {
		return Less(threads[i], threads[j])
	})
}

func Less(a, b *entity.ChatThread) bool {
	if !a.SortTime().Equal(b.SortTime()) {
		return a.SortTime().After(b.SortTime())
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Id.String() < b.Id.String()
}
