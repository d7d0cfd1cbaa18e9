// Package feed renders a Dataset in the published formats.
package feed

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mutige-mungos/mungo-shift/internal/models"
	"github.com/mutige-mungos/mungo-shift/internal/util"
)

const (
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeRSS  = "application/rss+xml; charset=utf-8"

	channelTitle       = "Borderlands 4 SHiFT codes"
	channelDescription = "Active Borderlands 4 SHiFT codes aggregated from the public feed."
)

// JSON writes the dataset as a single JSON document.
func JSON(w io.Writer, dataset *models.Dataset) error {
	if err := json.NewEncoder(w).Encode(dataset); err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	return nil
}

// Text writes the codes joined by newlines, without a trailing newline.
func Text(w io.Writer, dataset *models.Dataset) error {
	_, err := io.WriteString(w, strings.Join(dataset.Codes(), "\n"))
	return err
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Description string  `xml:"description"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// RSS writes an RSS 2.0 channel with one item per code.
func RSS(w io.Writer, dataset *models.Dataset, siteURL string) error {
	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:       channelTitle,
			Link:        siteURL,
			Description: channelDescription,
			Items:       make([]rssItem, 0, len(dataset.Items)),
		},
	}
	if t, ok := util.ParseTimestamp(dataset.UpdatedAt); ok {
		doc.Channel.LastBuildDate = t.UTC().Format(http.TimeFormat)
	}

	for _, item := range dataset.Items {
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       itemTitle(item),
			Link:        util.CodeLink(siteURL, item.Code),
			GUID:        rssGUID{IsPermaLink: "false", Value: item.Code},
			Description: itemDescription(item),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode rss: %w", err)
	}
	return enc.Close()
}

func itemTitle(item models.SanitizedCode) string {
	title := item.Code
	if item.Reward != "" {
		title += " — " + item.Reward
	}
	if item.Expires != "" {
		title += " (expires " + item.Expires + ")"
	}
	return title
}

func itemDescription(item models.SanitizedCode) string {
	parts := []string{"Code: " + item.Code}
	if item.Reward != "" {
		parts = append(parts, "Reward: "+item.Reward)
	}
	if item.Expires != "" {
		parts = append(parts, "Expires: "+item.Expires)
	}
	if item.Source != "" {
		parts = append(parts, "Source: "+item.Source)
	}
	return strings.Join(parts, " | ")
}
