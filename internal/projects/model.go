package projects

import (
	"encoding/json"
	"time"
)

// Project is the lightweight metadata record, one per project. The document
// record is the source of truth for existence and timestamps; the state blob
// is the source of truth for content.
type Project struct {
	ID        string    `firestore:"-" json:"id"`
	Name      string    `firestore:"name" json:"name"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// Snapshot is a full point-in-time copy of the editable state, appended to
// the activity history by the editor. The history sequence itself is owned
// by the caller; this core persists it faithfully.
type Snapshot struct {
	Label                 string            `json:"label,omitempty"`
	Timestamp             string            `json:"timestamp,omitempty"`
	StructuredPrompt      json.RawMessage   `json:"structuredPrompt,omitempty"`
	Seed                  int64             `json:"seed,omitempty"`
	ImageURL              string            `json:"imageUrl,omitempty"`
	FurnitureList         string            `json:"furnitureList,omitempty"`
	GLBList               []string          `json:"glbList,omitempty"`
	StudioBoundingBoxes   json.RawMessage   `json:"studioBoundingBoxes,omitempty"`
	StudioGLBAssignments  map[string]string `json:"studioGlbAssignments,omitempty"`
	IdeationBoundingBoxes json.RawMessage   `json:"ideationBoundingBoxes,omitempty"`
}

// ProjectState is the whole editable document, stored as one serialized blob
// per project and overwritten wholesale on every save. CurrentHistoryIndex
// is a cursor into ActivityHistory and may point before the end after an
// undo.
type ProjectState struct {
	Version               string            `json:"version,omitempty"`
	Timestamp             string            `json:"timestamp,omitempty"`
	StructuredPrompt      json.RawMessage   `json:"structuredPrompt,omitempty"`
	Seed                  int64             `json:"seed,omitempty"`
	ImageURL              string            `json:"imageUrl,omitempty"`
	FurnitureList         string            `json:"furnitureList,omitempty"`
	GLBList               []string          `json:"glbList"`
	StudioBoundingBoxes   json.RawMessage   `json:"studioBoundingBoxes,omitempty"`
	StudioGLBAssignments  map[string]string `json:"studioGlbAssignments,omitempty"`
	IdeationBoundingBoxes json.RawMessage   `json:"ideationBoundingBoxes,omitempty"`
	ActivityHistory       []Snapshot        `json:"activityHistory"`
	CurrentHistoryIndex   int               `json:"currentHistoryIndex"`
}

// Clone returns a deep copy: no mutable structure is shared with the
// receiver, including the full activity history.
func (s *ProjectState) Clone() *ProjectState {
	if s == nil {
		return nil
	}

	out := *s
	out.StructuredPrompt = cloneRaw(s.StructuredPrompt)
	out.GLBList = cloneStrings(s.GLBList)
	out.StudioBoundingBoxes = cloneRaw(s.StudioBoundingBoxes)
	out.StudioGLBAssignments = cloneStringMap(s.StudioGLBAssignments)
	out.IdeationBoundingBoxes = cloneRaw(s.IdeationBoundingBoxes)

	if s.ActivityHistory != nil {
		out.ActivityHistory = make([]Snapshot, len(s.ActivityHistory))
		for i, snap := range s.ActivityHistory {
			out.ActivityHistory[i] = snap.clone()
		}
	}
	return &out
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.StructuredPrompt = cloneRaw(s.StructuredPrompt)
	out.GLBList = cloneStrings(s.GLBList)
	out.StudioBoundingBoxes = cloneRaw(s.StudioBoundingBoxes)
	out.StudioGLBAssignments = cloneStringMap(s.StudioGLBAssignments)
	out.IdeationBoundingBoxes = cloneRaw(s.IdeationBoundingBoxes)
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
