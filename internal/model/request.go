package model

type SwitchSessionRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// ExternalSessionRequest reports a change of the externally supplied session
// id (for example the ?session= query of the host page).
type ExternalSessionRequest struct {
	SessionID string `json:"session_id"`
}

// SaveSessionRequest persists the caller's view. ForSessionID, when present,
// is the session the caller believed was current when it scheduled the write.
type SaveSessionRequest struct {
	Messages     []Message     `json:"messages"`
	XMLSnapshots []XMLSnapshot `json:"xml_snapshots"`
	ForSessionID *string       `json:"for_session_id"`
	Debounce     bool          `json:"debounce"`
}

type LoadDiagramRequest struct {
	XML            string `json:"xml" binding:"required"`
	SkipValidation bool   `json:"skip_validation"`
}

type ExportRequest struct {
	WithHistory bool `json:"with_history"`
}

type SaveFileRequest struct {
	Filename  string     `json:"filename" binding:"required"`
	Format    SaveFormat `json:"format" binding:"required"`
	SessionID string     `json:"session_id"`
}

// EditorEvent is posted by the embedded editor for every bridge event.
// StreamID, when set, names the command stream the page is attached to;
// events from a replaced stream are ignored.
type EditorEvent struct {
	Event    string `json:"event" binding:"required"`
	Data     string `json:"data"`
	StreamID string `json:"stream_id"`
}
