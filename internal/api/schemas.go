package api

import (
	"github.com/ivlev/scenescript/internal/script"
	"github.com/ivlev/scenescript/internal/timeline"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
	Script  string `json:"script"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type SceneResponse struct {
	Index           int              `json:"index"`
	ID              string           `json:"id"`
	Type            script.SceneType `json:"type"`
	Audio           script.AudioMode `json:"audio"`
	DurationSeconds float64          `json:"duration_seconds"`
	Start           int              `json:"start"`
	Frames          int              `json:"frames"`
	Text            string           `json:"text,omitempty"`
	Layers          int              `json:"layers"`
}

type ScenesResponse struct {
	Scenes []SceneResponse `json:"scenes"`
}

type SceneDetailResponse struct {
	SceneResponse
	Scene *script.Scene `json:"scene"`
}

func SceneToResponse(sc *script.Scene, sp timeline.Span) SceneResponse {
	return SceneResponse{
		Index:           sp.Index,
		ID:              sc.ID,
		Type:            sc.Type,
		Audio:           sc.Audio,
		DurationSeconds: sc.DurationSeconds,
		Start:           sp.Start,
		Frames:          sp.Frames,
		Text:            sc.Text,
		Layers:          len(sc.Layers),
	}
}
