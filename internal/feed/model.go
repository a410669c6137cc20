package feed

import "encoding/json"

// Post is the client-facing view of one tweet.
type Post struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	CreatedAt string          `json:"createdAt,omitempty"`
	Author    Author          `json:"author"`
	Metrics   Metrics         `json:"metrics"`
	Entities  json.RawMessage `json:"entities,omitempty"`
}

// Author is the denormalized tweet author. It marshals to {} when the
// author could not be resolved.
type Author struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name,omitempty"`
	Username        string `json:"username,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// Metrics are the public engagement counters; absent counters are 0.
type Metrics struct {
	LikeCount    int `json:"like_count"`
	ReplyCount   int `json:"reply_count"`
	RetweetCount int `json:"retweet_count"`
	QuoteCount   int `json:"quote_count"`
}

// Profile is the user returned by a username lookup.
type Profile struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Username        string `json:"username,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	Description     string `json:"description,omitempty"`
}

// Timeline is the result of TimelineByUsername.
type Timeline struct {
	Posts []Post  `json:"tweets"`
	User  Profile `json:"user"`
}

// Payload is the subset of a v2 API tweet list response the normalizer reads.
type Payload struct {
	Data     []RawTweet `json:"data"`
	Includes struct {
		Users []Author `json:"users"`
	} `json:"includes"`
}

// RawTweet is one element of Payload.Data.
type RawTweet struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	CreatedAt     string          `json:"created_at"`
	AuthorID      string          `json:"author_id"`
	PublicMetrics *Metrics        `json:"public_metrics"`
	Entities      json.RawMessage `json:"entities"`
}
