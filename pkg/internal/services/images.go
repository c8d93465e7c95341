package services

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const DefaultPlaceholderAvatar = "https://static.athlink.app/avatars/placeholder.png"

// ImageResolver verifies that a profile picture is actually fetchable from
// the blob store. Resolution is best-effort: any failure degrades to the
// placeholder, never to an error.
type ImageResolver struct {
	client      *http.Client
	placeholder string
}

func NewImageResolver() *ImageResolver {
	placeholder := viper.GetString("profiles.placeholder_avatar")
	if len(placeholder) == 0 {
		placeholder = DefaultPlaceholderAvatar
	}

	return &ImageResolver{
		client:      &http.Client{Timeout: 10 * time.Second},
		placeholder: placeholder,
	}
}

func (r *ImageResolver) Resolve(ctx context.Context, url string) string {
	if len(url) == 0 {
		return r.placeholder
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("An error occurred when building avatar request...")
		return r.placeholder
	}

	resp, err := r.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("An error occurred when fetching avatar...")
		return r.placeholder
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Str("url", url).Msg("Unexpected status when fetching avatar...")
		return r.placeholder
	}

	return url
}
