package services

import (
	"sort"
	"strings"
	"time"

	"github.com/athlink/feedengine/pkg/internal/models"
	"github.com/samber/lo"
)

// PostMapper turns a raw record into a Post. Mapping is total: absent or
// mistyped fields degrade to zero values instead of failing.
type PostMapper struct {
	CurrentUserID string

	detector *LanguageDetector
}

func NewPostMapper(currentUserID string, detector *LanguageDetector) *PostMapper {
	return &PostMapper{
		CurrentUserID: currentUserID,
		detector:      detector,
	}
}

func (m *PostMapper) Map(record Record) models.Post {
	post := models.Post{
		ID:           asString(record["id"]),
		AuthorID:     asString(record["authorId"]),
		Caption:      asString(record["caption"]),
		MediaURL:     asString(record["url"]),
		ThumbnailURL: asString(record["thumbnailURL"]),
		UploadedAt:   asTime(record["uploadDateTime"]),
		Private:      !asBool(record["visibility"]),
		LikeCount:    asInt(record["likeCount"]),
		LikedBy:      asStringSlice(record["likedBy"]),
		CommentCount: asInt(record["commentCount"]),
		Stats:        mapStats(record["performanceFeedback"]),
	}

	if post.LikeCount < 0 {
		post.LikeCount = 0
	}

	post.IsLiked = lo.Contains(post.LikedBy, m.CurrentUserID)

	if m.detector != nil && len(post.Caption) > 0 {
		post.Language = m.detector.Detect(post.Caption)
	}

	return post
}

// mapStats handles the two shapes the statistics payload arrives in. The
// map shape yields upper-cased labels sorted lexicographically; the list
// shape keeps insertion order and label casing. The ordering difference is
// inherited from the data source and deliberately not normalized here.
func mapStats(raw any) []models.StatEntry {
	switch value := raw.(type) {
	case map[string]any:
		entries := make([]models.StatEntry, 0, len(value))
		for label, score := range value {
			entries = append(entries, models.StatEntry{
				Label:    strings.ToUpper(label),
				Value:    asFloat(score),
				MaxValue: 10,
			})
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Label < entries[j].Label
		})
		return entries
	case []any:
		entries := make([]models.StatEntry, 0, len(value))
		for _, item := range value {
			fields, ok := item.(map[string]any)
			if !ok {
				continue
			}
			entry := models.StatEntry{
				Label:    asString(fields["label"]),
				Value:    asFloat(fields["value"]),
				MaxValue: 10,
			}
			if raw, ok := fields["maxValue"]; ok {
				entry.MaxValue = asFloat(raw)
			}
			entries = append(entries, entry)
		}
		return entries
	default:
		return nil
	}
}

func asString(raw any) string {
	if value, ok := raw.(string); ok {
		return value
	}
	return ""
}

func asBool(raw any) bool {
	if value, ok := raw.(bool); ok {
		return value
	}
	return false
}

func asInt(raw any) int {
	switch value := raw.(type) {
	case int:
		return value
	case int32:
		return int(value)
	case int64:
		return int(value)
	case float64:
		return int(value)
	case float32:
		return int(value)
	default:
		return 0
	}
}

func asFloat(raw any) float64 {
	switch value := raw.(type) {
	case float64:
		return value
	case float32:
		return float64(value)
	case int:
		return float64(value)
	case int32:
		return float64(value)
	case int64:
		return float64(value)
	default:
		return 0
	}
}

func asTime(raw any) time.Time {
	switch value := raw.(type) {
	case time.Time:
		return value
	case string:
		if parsed, err := time.Parse(time.RFC3339, value); err == nil {
			return parsed
		}
	case float64:
		return time.Unix(int64(value), 0)
	case int64:
		return time.Unix(value, 0)
	}
	return time.Time{}
}

func asStringSlice(raw any) []string {
	switch value := raw.(type) {
	case []string:
		return append([]string(nil), value...)
	case []any:
		return lo.FilterMap(value, func(item any, _ int) (string, bool) {
			entry, ok := item.(string)
			return entry, ok
		})
	default:
		return nil
	}
}
