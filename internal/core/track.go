package core

import "time"

// Track represents a playable audio track resolved by the catalog.
// It is immutable once constructed; the controller never mutates it.
type Track struct {
	ID         string        `json:"id"`
	URI        string        `json:"uri"`
	Title      string        `json:"title"`
	Artists    []string      `json:"artists"`
	Album      string        `json:"album"`
	AlbumID    string        `json:"album_id"`
	CoverURL   string        `json:"cover_url,omitempty"`
	Duration   time.Duration `json:"duration"`
	PreviewURL string        `json:"preview_url,omitempty"`
}

// Artist returns the primary artist, or "" if none are listed.
func (t *Track) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// Playable reports whether the track can be played at all: it needs a
// transport URI (remote playback) or a preview URL (fallback playback).
func (t *Track) Playable() bool {
	return t.URI != "" || t.PreviewURL != ""
}

// HasPreview reports whether short-clip fallback playback is possible.
func (t *Track) HasPreview() bool {
	return t.PreviewURL != ""
}
