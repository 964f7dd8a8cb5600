package projects

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/roomforge/roomforge-backend/internal/apperr"
	"github.com/roomforge/roomforge-backend/internal/assets"
)

const stateVersion = "2.0"

// Store persists project metadata in the document store and project state as
// one JSON blob per project.
type Store struct {
	meta MetaStore
	blob assets.Blob
}

func NewStore(meta MetaStore, blob assets.Blob) *Store {
	return &Store{meta: meta, blob: blob}
}

func statePath(userID, projectID string) string {
	return fmt.Sprintf("users/%s/projects/%s/project.json", userID, projectID)
}

func rendersPrefix(userID string) string {
	return fmt.Sprintf("users/%s/renders/", userID)
}

func newProjectID() string {
	return "project_" + uuid.NewString()
}

// CreateProject allocates a new, empty project (metadata only — a project
// with no stored state blob is valid and means "not yet saved").
func (s *Store) CreateProject(ctx context.Context, userID, name string) (*Project, error) {
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	return s.meta.Create(ctx, userID, newProjectID(), name)
}

// ListProjects returns the user's projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, userID string) ([]Project, error) {
	return s.meta.List(ctx, userID)
}

// RenameProject updates the metadata name and timestamp.
func (s *Store) RenameProject(ctx context.Context, userID, projectID, name string) (*Project, error) {
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	return s.meta.Rename(ctx, userID, projectID, name)
}

// Save overwrites the project's state blob wholesale and touches the
// metadata timestamp. There is no merge and no partial update.
func (s *Store) Save(ctx context.Context, userID, projectID string, state *ProjectState) error {
	if state == nil {
		return apperr.Validation("state is required")
	}
	if _, err := s.meta.Get(ctx, userID, projectID); err != nil {
		return err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serialize project state: %w", err)
	}

	if _, err := s.blob.Put(ctx, statePath(userID, projectID), data, "application/json"); err != nil {
		return fmt.Errorf("store project state: %w", err)
	}

	return s.meta.Touch(ctx, userID, projectID)
}

// Load fetches the state blob. A project that was never saved returns
// (nil, nil) so callers can tell "no state yet" from a fetch failure.
func (s *Store) Load(ctx context.Context, userID, projectID string) (*ProjectState, error) {
	data, err := s.blob.Get(ctx, statePath(userID, projectID))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state ProjectState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode project state: %w", err)
	}
	return &state, nil
}

// CreateVariation forks a new project named "{base}_variation" whose state
// is a deep copy of src, full activity history and cursor included.
func (s *Store) CreateVariation(ctx context.Context, userID, baseName string, src *ProjectState) (*Project, *ProjectState, error) {
	if baseName == "" {
		return nil, nil, apperr.Validation("baseName is required")
	}
	if src == nil {
		return nil, nil, apperr.Validation("source state is required")
	}

	p, err := s.meta.Create(ctx, userID, newProjectID(), baseName+"_variation")
	if err != nil {
		return nil, nil, err
	}

	state := src.Clone()
	state.Version = stateVersion
	state.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if state.GLBList == nil {
		state.GLBList = []string{}
	}
	if state.ActivityHistory == nil {
		state.ActivityHistory = []Snapshot{}
	}

	if err := s.Save(ctx, userID, p.ID, state); err != nil {
		return nil, nil, err
	}
	return p, state, nil
}

// Delete removes the metadata record and makes a best-effort attempt at the
// state blob: an already-absent blob counts as success.
func (s *Store) Delete(ctx context.Context, userID, projectID string) error {
	if err := s.meta.Delete(ctx, userID, projectID); err != nil {
		return err
	}

	err := s.blob.Delete(ctx, statePath(userID, projectID))
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("delete project state: %w", err)
	}
	return nil
}

// RendersPage is one page of a user's stored renders.
type RendersPage struct {
	Renders       []assets.ObjectInfo `json:"renders"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
	HasMore       bool                `json:"hasMore"`
}

// ListRenders pages through the user's render objects, newest-named first
// within the page.
func (s *Store) ListRenders(ctx context.Context, userID, pageToken string, pageSize int) (*RendersPage, error) {
	if pageSize <= 0 {
		pageSize = 8
	}

	items, next, err := s.blob.List(ctx, rendersPrefix(userID), pageToken, pageSize)
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Name > items[j].Name
	})

	return &RendersPage{
		Renders:       items,
		NextPageToken: next,
		HasMore:       next != "",
	}, nil
}
