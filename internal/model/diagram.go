package model

// ExportFormat is the format requested from the editor bridge.
type ExportFormat string

const (
	// ExportXMLSVG is an SVG rendering with the diagram markup embedded.
	ExportXMLSVG ExportFormat = "xmlsvg"
	ExportPNG    ExportFormat = "png"
	ExportSVG    ExportFormat = "svg"
)

// SaveFormat is the file format a user saves to.
type SaveFormat string

const (
	SaveDrawio SaveFormat = "drawio"
	SavePNG    SaveFormat = "png"
	SaveSVG    SaveFormat = "svg"
)

// ExportFormat maps a save format to the bridge export that produces it.
func (f SaveFormat) ExportFormat() ExportFormat {
	switch f {
	case SavePNG:
		return ExportPNG
	case SaveSVG:
		return ExportSVG
	default:
		return ExportXMLSVG
	}
}

func (f SaveFormat) Valid() bool {
	return f == SaveDrawio || f == SavePNG || f == SaveSVG
}

type DiagramDocument struct {
	Markup    string `json:"xml"`
	Rendering string `json:"svg,omitempty"`
}

type HistoryEntry struct {
	Rendering string `json:"svg"`
	Markup    string `json:"xml"`
}

// ValidationResult is the verdict of the vision-model diagram check.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// DefaultValidResult is returned whenever validation cannot run, so a failed
// check never blocks the user.
func DefaultValidResult() *ValidationResult {
	return &ValidationResult{Valid: true, Issues: []string{}, Suggestions: []string{}}
}

// SaveEvent is the audit record emitted when a diagram is saved to a file.
type SaveEvent struct {
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	SessionID string `json:"sessionId,omitempty"`
}
