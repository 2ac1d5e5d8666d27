package view

import "fmt"

const thumbnailURL = "https://img.youtube.com/vi/%s/%s.jpg"

func resolveThumbnail(record, basicMeta map[string]any, videoID string) string {
	if thumb := firstString(value(record, "thumbnail"), value(basicMeta, "thumbnail")); thumb != "" {
		return thumb
	}
	if videoID == "" {
		return ""
	}
	return fmt.Sprintf(thumbnailURL, videoID, "mqdefault")
}

// ThumbnailFallbacks lists the URLs a client should try, in order, when the
// primary thumbnail fails to load. After the last one it shows a
// placeholder.
func ThumbnailFallbacks(videoID string) []string {
	if videoID == "" {
		return []string{}
	}
	return []string{
		fmt.Sprintf(thumbnailURL, videoID, "hqdefault"),
		fmt.Sprintf(thumbnailURL, videoID, "maxresdefault"),
	}
}
