package youtube

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sosodev/duration"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type Client struct {
	service *youtube.Service
	debug   bool
}

func New(ctx context.Context, key string, debug bool, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(key)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: couldn't create service: %w", err)
	}
	return &Client{
		service: service,
		debug:   debug,
	}, nil
}

// Search returns the id of the first video matching the query, or an empty
// string if there is no match.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		MaxResults(1).
		Type("video").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube: couldn't search %q: %w", query, err)
	}
	if c.debug {
		b, _ := resp.MarshalJSON()
		log.Println("youtube:", string(b))
	}
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			return item.Id.VideoId, nil
		}
	}
	return "", nil
}

// Duration returns the length of a video.
func (c *Client) Duration(ctx context.Context, id string) (time.Duration, error) {
	resp, err := c.service.Videos.List([]string{"contentDetails"}).
		Id(id).
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("youtube: couldn't get video %s: %w", id, err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ContentDetails == nil {
		return 0, fmt.Errorf("youtube: video %s not found", id)
	}
	return ParseDuration(resp.Items[0].ContentDetails.Duration)
}

// ParseDuration parses ISO 8601 durations as returned by the API, e.g.
// PT4M13S, P1DT2H or PT1.5S.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" || s == "P" || s == "PT" {
		return 0, fmt.Errorf("youtube: invalid duration %q", s)
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("youtube: invalid duration %q: %w", s, err)
	}
	if d.Negative {
		return 0, fmt.Errorf("youtube: negative duration %q", s)
	}
	return d.ToTimeDuration(), nil
}

// URL returns the watch page of a video.
func URL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
