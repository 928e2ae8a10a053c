package model

type SessionListResponse struct {
	Sessions  []SessionMetadata `json:"sessions"`
	CurrentID string            `json:"current_id"`
	Available bool              `json:"available"`
}

type DiagramResponse struct {
	Document DiagramDocument `json:"document"`
	History  []HistoryEntry  `json:"history"`
	Ready    bool            `json:"ready"`
}

type ThumbnailResponse struct {
	Thumbnail string `json:"thumbnail"`
}

type DeleteSessionResponse struct {
	WasCurrentSession bool `json:"was_current_session"`
}
