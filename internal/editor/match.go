package editor

import (
	"drawflow-backend/internal/diagram"
	"drawflow-backend/internal/model"
)

// Match is the route an export payload takes through OnExport.
type Match int

const (
	MatchUnmatched Match = iota
	MatchRaster
	MatchSave
	MatchThumbnail
)

func (m Match) String() string {
	switch m {
	case MatchRaster:
		return "raster"
	case MatchSave:
		return "save"
	case MatchThumbnail:
		return "thumbnail"
	default:
		return "unmatched"
	}
}

// classify picks the route for payload given which waiters are live. The
// payload carries no request id, so the order of the checks is the
// correlation rule:
//
//  1. a raster payload goes to a live validation waiter
//  2. otherwise a live save request takes it, if the payload is of the
//     kind its format produces
//  3. anything else is treated as a document export
//
// A png save ignores vector payloads and the other formats ignore raster
// ones, so a thumbnail export arriving during a png save still reaches the
// thumbnail waiter. A raster payload nobody asked for is unmatched since no
// markup can be recovered from it.
func classify(slots *[roleCount]*waiter, payload string) Match {
	raster := diagram.IsRasterPayload(payload)

	switch {
	case slots[RoleValidation] != nil && raster:
		return MatchRaster
	case slots[RoleSave] != nil && (slots[RoleSave].format == model.SavePNG) == raster:
		return MatchSave
	case raster:
		return MatchUnmatched
	default:
		return MatchThumbnail
	}
}
