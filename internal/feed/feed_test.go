package feed

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutige-mungos/mungo-shift/internal/models"
)

func testDataset() *models.Dataset {
	return &models.Dataset{
		UpdatedAt: "2025-03-01T12:30:00.000Z",
		Count:     2,
		Items: []models.SanitizedCode{
			{
				Code:    "AAAAA-AAAAA-AAAAA-AAAAA-AAAAA",
				Reward:  "Golden Key & more",
				Expires: "2025-04-01T00:00:00.000Z",
				Source:  "https://example.com/post",
			},
			{Code: "BBBBB-BBBBB-BBBBB-BBBBB-BBBBB"},
		},
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, testDataset()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "2025-03-01T12:30:00.000Z", got["updatedAt"])
	assert.Equal(t, float64(2), got["count"])
	assert.NotContains(t, got, "generatedAt")

	items := got["items"].([]any)
	require.Len(t, items, 2)
	second := items[1].(map[string]any)
	assert.Equal(t, map[string]any{"code": "BBBBB-BBBBB-BBBBB-BBBBB-BBBBB"}, second)
}

func TestJSON_EmptyItemsIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, &models.Dataset{UpdatedAt: "x", Items: []models.SanitizedCode{}}))
	assert.Contains(t, buf.String(), `"items":[]`)
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, testDataset()))
	assert.Equal(t, "AAAAA-AAAAA-AAAAA-AAAAA-AAAAA\nBBBBB-BBBBB-BBBBB-BBBBB-BBBBB", buf.String())
}

func TestRSS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RSS(&buf, testDataset(), "https://shift.example.com/"))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `<rss version="2.0">`)
	assert.Contains(t, out, `<guid isPermaLink="false">AAAAA-AAAAA-AAAAA-AAAAA-AAAAA</guid>`)
	assert.Contains(t, out, "<lastBuildDate>Sat, 01 Mar 2025 12:30:00 GMT</lastBuildDate>")
	assert.Contains(t, out, "Golden Key &amp; more")

	var doc rssDocument
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, channelTitle, doc.Channel.Title)
	require.Len(t, doc.Channel.Items, 2)

	first := doc.Channel.Items[0]
	assert.Equal(t, "AAAAA-AAAAA-AAAAA-AAAAA-AAAAA — Golden Key & more (expires 2025-04-01T00:00:00.000Z)", first.Title)
	assert.Equal(t, "https://shift.example.com/?code=AAAAA-AAAAA-AAAAA-AAAAA-AAAAA", first.Link)
	assert.Equal(t,
		"Code: AAAAA-AAAAA-AAAAA-AAAAA-AAAAA | Reward: Golden Key & more | Expires: 2025-04-01T00:00:00.000Z | Source: https://example.com/post",
		first.Description)

	second := doc.Channel.Items[1]
	assert.Equal(t, "BBBBB-BBBBB-BBBBB-BBBBB-BBBBB", second.Title)
	assert.Equal(t, "Code: BBBBB-BBBBB-BBBBB-BBBBB-BBBBB", second.Description)
}

func TestRSS_NoItems(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RSS(&buf, &models.Dataset{Items: []models.SanitizedCode{}}, "https://example.com"))

	var doc rssDocument
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Empty(t, doc.Channel.Items)
	assert.Empty(t, doc.Channel.LastBuildDate)
}
