package projects

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomforge/roomforge-backend/internal/apperr"
	"github.com/roomforge/roomforge-backend/internal/assets"
)

type memMeta struct {
	mu       sync.Mutex
	projects map[string]map[string]*Project // userID -> projectID -> record
}

func newMemMeta() *memMeta {
	return &memMeta{projects: make(map[string]map[string]*Project)}
}

func (m *memMeta) Create(_ context.Context, userID, projectID, name string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.projects[userID] == nil {
		m.projects[userID] = make(map[string]*Project)
	}
	now := time.Now().UTC()
	p := &Project{ID: projectID, Name: name, CreatedAt: now, UpdatedAt: now}
	m.projects[userID][projectID] = p

	cp := *p
	return &cp, nil
}

func (m *memMeta) Get(_ context.Context, userID, projectID string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[userID][projectID]
	if !ok {
		return nil, apperr.NotFound("project %s", projectID)
	}
	cp := *p
	return &cp, nil
}

func (m *memMeta) List(_ context.Context, userID string) ([]Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Project, 0, len(m.projects[userID]))
	for _, p := range m.projects[userID] {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memMeta) Rename(_ context.Context, userID, projectID, name string) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[userID][projectID]
	if !ok {
		return nil, apperr.NotFound("project %s", projectID)
	}
	p.Name = name
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (m *memMeta) Touch(_ context.Context, userID, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[userID][projectID]
	if !ok {
		return apperr.NotFound("project %s", projectID)
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memMeta) Delete(_ context.Context, userID, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.projects[userID], projectID)
	return nil
}

type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte)}
}

func (b *memBlob) Put(_ context.Context, path string, data []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	b.objects[path] = cp
	return "https://storage.example.com/test-bucket/" + path, nil
}

func (b *memBlob) Get(_ context.Context, path string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[path]
	if !ok {
		return nil, apperr.NotFound("object %s", path)
	}
	return data, nil
}

func (b *memBlob) Delete(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[path]; !ok {
		return apperr.NotFound("object %s", path)
	}
	delete(b.objects, path)
	return nil
}

func (b *memBlob) List(_ context.Context, prefix, _ string, _ int) ([]assets.ObjectInfo, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []assets.ObjectInfo
	for path := range b.objects {
		if strings.HasPrefix(path, prefix) {
			name := path[strings.LastIndex(path, "/")+1:]
			out = append(out, assets.ObjectInfo{Name: name, Path: path})
		}
	}
	return out, "", nil
}

func newTestStore() (*Store, *memMeta, *memBlob) {
	meta := newMemMeta()
	blob := newMemBlob()
	return NewStore(meta, blob), meta, blob
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	p, err := store.CreateProject(ctx, "user-1", "Living Room")
	require.NoError(t, err)

	t.Run("never-saved project loads as nil without error", func(t *testing.T) {
		state, err := store.Load(ctx, "user-1", p.ID)
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("save then load round-trips the state", func(t *testing.T) {
		in := &ProjectState{
			Version:          "2.0",
			StructuredPrompt: json.RawMessage(`{"style":"modern"}`),
			Seed:             42,
			ImageURL:         "https://storage.example.com/test-bucket/users/user-1/renders/a.png",
			GLBList:          []string{"sofa.glb"},
			ActivityHistory: []Snapshot{
				{Label: "initial", GLBList: []string{"sofa.glb"}},
			},
			CurrentHistoryIndex: 0,
		}
		require.NoError(t, store.Save(ctx, "user-1", p.ID, in))

		out, err := store.Load(ctx, "user-1", p.ID)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.Equal(t, in.Seed, out.Seed)
		assert.Equal(t, in.GLBList, out.GLBList)
		assert.Len(t, out.ActivityHistory, 1)
		assert.JSONEq(t, `{"style":"modern"}`, string(out.StructuredPrompt))
	})

	t.Run("save overwrites wholesale", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "user-1", p.ID, &ProjectState{Seed: 7, GLBList: []string{}}))

		out, err := store.Load(ctx, "user-1", p.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 7, out.Seed)
		assert.Empty(t, out.GLBList)
		assert.Empty(t, out.ActivityHistory)
	})

	t.Run("save to unknown project fails", func(t *testing.T) {
		err := store.Save(ctx, "user-1", "project_missing", &ProjectState{})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestCreateVariation(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore()

	src := &ProjectState{
		Version:  "2.0",
		ImageURL: "https://storage.example.com/test-bucket/users/user-1/renders/a.png",
		GLBList:  []string{"sofa.glb", "table.glb"},
		ActivityHistory: []Snapshot{
			{Label: "one"},
			{Label: "two", GLBList: []string{"sofa.glb"}},
		},
		CurrentHistoryIndex: 1,
		StudioGLBAssignments: map[string]string{
			"box-1": "sofa.glb",
		},
	}

	p, state, err := store.CreateVariation(ctx, "user-1", "Living Room", src)
	require.NoError(t, err)

	t.Run("fork carries the full history and cursor", func(t *testing.T) {
		assert.Equal(t, "Living Room_variation", p.Name)
		assert.Len(t, state.ActivityHistory, 2)
		assert.Equal(t, 1, state.CurrentHistoryIndex)
		assert.Equal(t, src.GLBList, state.GLBList)
	})

	t.Run("fork is isolated from the source", func(t *testing.T) {
		state.GLBList[0] = "changed.glb"
		state.ActivityHistory[0].Label = "changed"
		state.StudioGLBAssignments["box-1"] = "changed.glb"

		assert.Equal(t, "sofa.glb", src.GLBList[0])
		assert.Equal(t, "one", src.ActivityHistory[0].Label)
		assert.Equal(t, "sofa.glb", src.StudioGLBAssignments["box-1"])
	})

	t.Run("fork is persisted under its own id", func(t *testing.T) {
		assert.NotEmpty(t, p.ID)

		loaded, err := store.Load(ctx, "user-1", p.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Len(t, loaded.ActivityHistory, 2)
	})

	t.Run("requires a source state", func(t *testing.T) {
		_, _, err := store.CreateVariation(ctx, "user-1", "X", nil)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func TestDeleteProject(t *testing.T) {
	ctx := context.Background()
	store, meta, _ := newTestStore()

	t.Run("removes metadata and state", func(t *testing.T) {
		p, err := store.CreateProject(ctx, "user-1", "Doomed")
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "user-1", p.ID, &ProjectState{}))

		require.NoError(t, store.Delete(ctx, "user-1", p.ID))

		_, err = meta.Get(ctx, "user-1", p.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("tolerates a never-saved project", func(t *testing.T) {
		p, err := store.CreateProject(ctx, "user-1", "Empty")
		require.NoError(t, err)

		assert.NoError(t, store.Delete(ctx, "user-1", p.ID))
	})
}

func TestListRenders(t *testing.T) {
	ctx := context.Background()
	store, _, blob := newTestStore()

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		_, err := blob.Put(ctx, "users/user-1/renders/"+name, []byte("x"), "image/png")
		require.NoError(t, err)
	}
	_, err := blob.Put(ctx, "users/user-2/renders/other.png", []byte("x"), "image/png")
	require.NoError(t, err)

	page, err := store.ListRenders(ctx, "user-1", "", 10)
	require.NoError(t, err)

	require.Len(t, page.Renders, 3)
	assert.False(t, page.HasMore)
	// Newest-named first.
	assert.Equal(t, "c.png", page.Renders[0].Name)
	assert.Equal(t, "a.png", page.Renders[2].Name)
}

func TestCloneIsDeep(t *testing.T) {
	src := &ProjectState{
		StructuredPrompt: json.RawMessage(`{"a":1}`),
		GLBList:          []string{"x.glb"},
		ActivityHistory:  []Snapshot{{GLBList: []string{"x.glb"}}},
	}

	cp := src.Clone()
	cp.StructuredPrompt[1] = 'b'
	cp.GLBList[0] = "y.glb"
	cp.ActivityHistory[0].GLBList[0] = "y.glb"

	assert.Equal(t, json.RawMessage(`{"a":1}`), src.StructuredPrompt)
	assert.Equal(t, "x.glb", src.GLBList[0])
	assert.Equal(t, "x.glb", src.ActivityHistory[0].GLBList[0])
}
