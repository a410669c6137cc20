package feed

import (
	"encoding/json"
	"fmt"
)

// Normalize decodes a raw tweet list response and reshapes it into posts.
// An empty body or {} yields an empty list.
func Normalize(raw []byte) ([]Post, error) {
	var p Payload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("feed: decode upstream payload: %w", err)
		}
	}
	return NormalizePayload(p), nil
}

// NormalizePayload resolves each tweet's author through the payload's
// included users and keeps upstream order. It never returns nil.
func NormalizePayload(p Payload) []Post {
	users := make(map[string]Author, len(p.Includes.Users))
	for _, u := range p.Includes.Users {
		users[u.ID] = u
	}

	posts := make([]Post, 0, len(p.Data))
	for _, t := range p.Data {
		post := Post{
			ID:        t.ID,
			Text:      t.Text,
			CreatedAt: t.CreatedAt,
			Author:    users[t.AuthorID],
			Entities:  t.Entities,
		}
		if t.PublicMetrics != nil {
			post.Metrics = *t.PublicMetrics
		}
		posts = append(posts, post)
	}
	return posts
}
