package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	gocache "github.com/patrickmn/go-cache"
)

// TitleCache memoizes conversation title generation for the process lifetime.
// Entries are keyed by a normalized hash of the first user message, so the
// same opening question never pays for a second model call. There is no
// eviction; titles are tiny and the entry count grows with distinct first
// messages only. Safe for concurrent use from unrelated conversations.
type TitleCache struct {
	client ModelClient
	model  CouncilModel
	cache  *gocache.Cache
}

// NewTitleCache builds a cache that generates titles with the given model.
func NewTitleCache(client ModelClient, model CouncilModel) *TitleCache {
	return &TitleCache{
		client: client,
		model:  model,
		cache:  gocache.New(gocache.NoExpiration, 0),
	}
}

// GetOrCompute returns the cached title for the message, or issues one
// generation call and stores the result. Concurrent misses on the same key may
// both call the model; last write wins, which is harmless for a title.
func (tc *TitleCache) GetOrCompute(ctx context.Context, firstMessage string) (string, error) {
	key := normalizeTitleKey(firstMessage)
	if cached, ok := tc.cache.Get(key); ok {
		return cached.(string), nil
	}

	title, err := generateTitle(ctx, tc.client, tc.model, firstMessage)
	if err != nil {
		return "", err
	}

	tc.cache.Set(key, title, gocache.NoExpiration)
	return title, nil
}

// Size returns the number of memoized titles.
func (tc *TitleCache) Size() int {
	return tc.cache.ItemCount()
}

// normalizeTitleKey collapses case and whitespace so trivial retypes of the
// same question share a cache entry, then hashes to keep keys bounded.
func normalizeTitleKey(message string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(message), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// generateTitle asks the title model for a 3-5 word summary of the query.
func generateTitle(ctx context.Context, client ModelClient, model CouncilModel, userQuery string) (string, error) {
	titlePrompt := fmt.Sprintf(`Generate a very short title (3-5 words maximum) that summarizes the following question.
The title should be concise and descriptive. Do not use quotes or punctuation in the title.

Question: %s

Title:`, userQuery)

	messages := []ChatMessage{
		{Role: "user", Content: titlePrompt},
	}

	text, err := client.Invoke(ctx, model.ID, messages, model.Timeout)
	if err != nil {
		return "", fmt.Errorf("title generation failed: %w", err)
	}

	title := strings.TrimSpace(text)

	// Clean up the title - remove quotes
	title = strings.Trim(title, "\"'")

	// Truncate if too long
	if len(title) > 50 {
		title = title[:47] + "..."
	}

	return title, nil
}
