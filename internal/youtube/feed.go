package youtube

import (
	"encoding/xml"
	"fmt"
	"time"
)

// feedDocument is the Atom payload the hub POSTs to the callback. Deleted
// entries arrive as at:deleted-entry elements and are not content changes.
type feedDocument struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []feedEntry `xml:"entry"`
	Deleted []struct {
		Ref string `xml:"ref,attr"`
	} `xml:"deleted-entry"`
}

type feedEntry struct {
	VideoID   string     `xml:"videoId"`
	ChannelID string     `xml:"channelId"`
	Title     string     `xml:"title"`
	Published string     `xml:"published"`
	Links     []feedLink `xml:"link"`
}

type feedLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// ParseFeed extracts the content-change entries from a hub delivery.
// Delete-style entries are dropped. An unparseable document is an error the
// caller logs and acknowledges anyway.
func ParseFeed(body []byte) ([]Video, error) {
	var doc feedDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse feed document: %w", err)
	}

	videos := make([]Video, 0, len(doc.Entries))
	for _, entry := range doc.Entries {
		if entry.VideoID == "" {
			continue
		}

		link := WatchURL(entry.VideoID)
		for _, l := range entry.Links {
			if l.Rel == "alternate" && l.Href != "" {
				link = l.Href
				break
			}
		}

		// A missing or malformed publish time leaves the zero value; the
		// recency guard then treats the entry as stale rather than fresh.
		published, _ := time.Parse(time.RFC3339, entry.Published)

		videos = append(videos, Video{
			ID:          entry.VideoID,
			Title:       entry.Title,
			ChannelID:   entry.ChannelID,
			Link:        link,
			PublishedAt: published,
		})
	}
	return videos, nil
}
