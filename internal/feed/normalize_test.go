package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_ResolvesAuthor(t *testing.T) {
	posts, err := Normalize([]byte(`{
		"data": [{"id": "1", "author_id": "9", "text": "hi"}],
		"includes": {"users": [{"id": "9", "name": "A"}]}
	}`))
	require.NoError(t, err)
	require.Len(t, posts, 1)

	p := posts[0]
	assert.Equal(t, "1", p.ID)
	assert.Equal(t, "hi", p.Text)
	assert.Equal(t, Author{ID: "9", Name: "A"}, p.Author)
	assert.Equal(t, Metrics{}, p.Metrics)
}

func TestNormalize_EmptyInputs(t *testing.T) {
	for _, raw := range []string{``, `{}`, `{"data": []}`, `{"meta": {"result_count": 0}}`} {
		posts, err := Normalize([]byte(raw))
		require.NoError(t, err, raw)
		assert.NotNil(t, posts, raw)
		assert.Empty(t, posts, raw)

		out, err := json.Marshal(posts)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(out))
	}
}

func TestNormalize_UnknownAuthorIsEmptyObject(t *testing.T) {
	posts, err := Normalize([]byte(`{"data": [{"id": "1", "author_id": "404", "text": "x"}]}`))
	require.NoError(t, err)

	out, err := json.Marshal(posts[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"author":{}`)
	assert.Contains(t, string(out), `"metrics":{"like_count":0,"reply_count":0,"retweet_count":0,"quote_count":0}`)
	assert.NotContains(t, string(out), `"entities"`)
}

func TestNormalize_PreservesOrderMetricsAndEntities(t *testing.T) {
	posts, err := Normalize([]byte(`{
		"data": [
			{"id": "3", "author_id": "b", "text": "third", "created_at": "2024-05-01T10:00:00.000Z",
			 "public_metrics": {"like_count": 5, "reply_count": 1, "retweet_count": 2, "quote_count": 0, "impression_count": 99},
			 "entities": {"hashtags": [{"start": 0, "end": 4, "tag": "go"}]}},
			{"id": "1", "author_id": "a", "text": "first", "public_metrics": {"like_count": 7}},
			{"id": "2", "author_id": "a", "text": "second"}
		],
		"includes": {"users": [
			{"id": "a", "name": "Ann", "username": "ann", "profile_image_url": "https://img/a.png"},
			{"id": "b", "name": "Bob", "username": "bob"}
		]}
	}`))
	require.NoError(t, err)
	require.Len(t, posts, 3)

	assert.Equal(t, []string{"3", "1", "2"}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
	assert.Equal(t, Metrics{LikeCount: 5, ReplyCount: 1, RetweetCount: 2}, posts[0].Metrics)
	assert.Equal(t, Metrics{LikeCount: 7}, posts[1].Metrics)
	assert.Equal(t, "2024-05-01T10:00:00.000Z", posts[0].CreatedAt)
	assert.JSONEq(t, `{"hashtags": [{"start": 0, "end": 4, "tag": "go"}]}`, string(posts[0].Entities))
	assert.Equal(t, "ann", posts[1].Author.Username)
	assert.Equal(t, "https://img/a.png", posts[2].Author.ProfileImageURL)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := []byte(`{"data": [{"id": "1", "author_id": "9", "text": "hi"}], "includes": {"users": [{"id": "9"}]}}`)
	a, err := Normalize(raw)
	require.NoError(t, err)
	b, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalize_InvalidJSON(t *testing.T) {
	_, err := Normalize([]byte(`{"data": [`))
	assert.Error(t, err)
}
