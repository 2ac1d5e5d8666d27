package utils

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/nijaru/yt-digest/models"
)

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration such as PT1H2M5S into
// seconds.
func ParseISODuration(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "P" || strings.HasSuffix(s, "T") {
		return 0, false
	}
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}

	var total float64
	units := []float64{86400, 3600, 60, 1}
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		total += n * unit
	}
	return total, true
}

// ParseClock converts "h:mm:ss" or "m:ss" into seconds.
func ParseClock(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, ":") {
		return 0, false
	}
	var total float64
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.ParseFloat(part, 64)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

// FormatTimestamp renders seconds as mm:ss, or h:mm:ss past the hour.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// TimestampedHTML renders one paragraph per segment with a clickable
// timestamp span.
func TimestampedHTML(segments []models.Segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b,
			`<p class="segment"><span class="timestamp" data-start="%s">[%s]</span> %s</p>`,
			strconv.FormatFloat(seg.Start, 'f', -1, 64),
			FormatTimestamp(seg.Start),
			html.EscapeString(strings.TrimSpace(seg.Text)),
		)
	}
	return b.String()
}

// SegmentsText joins segment texts into a plain transcript.
func SegmentsText(segments []models.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
