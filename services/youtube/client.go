// Package youtube fetches video metadata from the YouTube Data API. Every
// upstream call goes through the shared cache fetcher.
package youtube

import (
	"context"
	"net/http"
	"strings"

	"github.com/nijaru/yt-digest/cache"
	apperrors "github.com/nijaru/yt-digest/errors"
	"github.com/nijaru/yt-digest/models"
	"github.com/nijaru/yt-digest/utils"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// MetadataClient is what the analysis service needs from YouTube.
type MetadataClient interface {
	Metadata(ctx context.Context, videoID string) (models.VideoMetadata, error)
}

type Config struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

type Client struct {
	service *yt.Service
	fetcher *cache.Fetcher
	logger  *logrus.Logger
}

// New builds a client. Without an API key the client only returns minimal
// metadata carrying the video id.
func New(ctx context.Context, cfg Config, fetcher *cache.Fetcher, logger *logrus.Logger) (*Client, error) {
	c := &Client{fetcher: fetcher, logger: logger}
	if cfg.APIKey == "" {
		logger.Warn("YOUTUBE_API_KEY not set, metadata lookups are disabled")
		return c, nil
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, apperrors.Internal("youtube.New", err, "failed to create YouTube client")
	}
	c.service = service
	return c, nil
}

func (c *Client) Metadata(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	if c.service == nil {
		return minimalMetadata(videoID), nil
	}
	return cache.FetchWithCache(ctx, c.fetcher, cache.KindMetadata, videoID, cache.KindMetadata.TTL(),
		func(ctx context.Context) (models.VideoMetadata, error) {
			return c.fetch(ctx, videoID)
		})
}

func (c *Client) fetch(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	const op = "youtube.Client.fetch"

	resp, err := c.service.Videos.
		List([]string{"snippet", "contentDetails", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return models.VideoMetadata{}, err
	}
	if len(resp.Items) == 0 {
		return models.VideoMetadata{}, apperrors.NotFound(op, nil, "Video not found")
	}

	meta := fromVideo(resp.Items[0])
	meta.Captions = c.captions(ctx, videoID)
	meta.Stats.HasSubtitles = meta.Stats.HasSubtitles || len(meta.Captions) > 0
	return meta, nil
}

// captions is best-effort; many keys are not allowed to list tracks.
func (c *Client) captions(ctx context.Context, videoID string) []models.Caption {
	resp, err := c.service.Captions.List([]string{"snippet"}, videoID).Context(ctx).Do()
	if err != nil {
		c.logger.WithError(err).WithField("video_id", videoID).Debug("Caption listing unavailable")
		return []models.Caption{}
	}

	out := make([]models.Caption, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}
		out = append(out, models.Caption{
			Language:      item.Snippet.Language,
			Name:          item.Snippet.Name,
			Kind:          item.Snippet.TrackKind,
			AutoGenerated: strings.EqualFold(item.Snippet.TrackKind, "asr"),
		})
	}
	return out
}

func fromVideo(v *yt.Video) models.VideoMetadata {
	meta := models.VideoMetadata{
		Basic:    models.BasicInfo{VideoID: v.Id},
		Chapters: []models.Chapter{},
		Captions: []models.Caption{},
		Stats:    models.Stats{Keywords: []string{}},
	}

	if v.ContentDetails != nil {
		if d, ok := utils.ParseISODuration(v.ContentDetails.Duration); ok {
			meta.Basic.Duration = d
		}
		meta.Stats.HasSubtitles = v.ContentDetails.Caption == "true"
	}

	if v.Statistics != nil {
		meta.Basic.ViewCount = int64(v.Statistics.ViewCount)
		meta.Basic.Likes = int64(v.Statistics.LikeCount)
	}

	if s := v.Snippet; s != nil {
		meta.Basic.Title = s.Title
		meta.Basic.Channel = s.ChannelTitle
		meta.Basic.Description = s.Description
		meta.Basic.Category = categoryName(s.CategoryId)
		meta.Basic.PublishDate = s.PublishedAt
		if len(s.PublishedAt) >= len("2006-01-02") {
			meta.Basic.UploadDate = s.PublishedAt[:len("2006-01-02")]
		}
		meta.Basic.Thumbnail = bestThumbnail(s.Thumbnails)
		if len(s.Tags) > 0 {
			meta.Stats.Keywords = s.Tags
		}
		meta.Chapters = ParseChapters(s.Description, meta.Basic.Duration)
	}

	return meta
}

func minimalMetadata(videoID string) models.VideoMetadata {
	return models.VideoMetadata{
		Basic:    models.BasicInfo{VideoID: videoID},
		Chapters: []models.Chapter{},
		Captions: []models.Caption{},
		Stats:    models.Stats{Keywords: []string{}},
	}
}

func bestThumbnail(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*yt.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

var categories = map[string]string{
	"1":  "Film & Animation",
	"2":  "Autos & Vehicles",
	"10": "Music",
	"15": "Pets & Animals",
	"17": "Sports",
	"19": "Travel & Events",
	"20": "Gaming",
	"22": "People & Blogs",
	"23": "Comedy",
	"24": "Entertainment",
	"25": "News & Politics",
	"26": "Howto & Style",
	"27": "Education",
	"28": "Science & Technology",
	"29": "Nonprofits & Activism",
}

func categoryName(id string) string {
	if name, ok := categories[id]; ok {
		return name
	}
	return ""
}
