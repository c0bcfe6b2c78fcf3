package quotereel

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
	GUID    string `xml:"guid"`
}

// handleFeed serves an RSS feed of the most recently posted quotes.
func (a *App) handleFeed(c echo.Context) error {
	records, err := a.Ledger.Recent(50)
	if err != nil {
		return err
	}

	var items []rssItem
	for _, r := range records {
		if !r.Posted {
			continue
		}
		pubDate := ""
		if t, err := time.Parse("2006-01-02", r.PostDate); err == nil {
			pubDate = t.Format(time.RFC1123Z)
		}
		items = append(items, rssItem{
			Title:   r.Quote,
			PubDate: pubDate,
			GUID:    fmt.Sprintf("quote:%s:%s", r.PostDate, r.Quote),
		})
	}

	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       "quotereel",
			Link:        "/",
			Description: "Recently posted motivational quotes",
			Items:       items,
		},
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
