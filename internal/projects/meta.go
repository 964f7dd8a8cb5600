package projects

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/roomforge/roomforge-backend/internal/apperr"
)

// MetaStore is the document-store surface for project metadata.
type MetaStore interface {
	Create(ctx context.Context, userID, projectID, name string) (*Project, error)
	Get(ctx context.Context, userID, projectID string) (*Project, error)
	List(ctx context.Context, userID string) ([]Project, error)
	Rename(ctx context.Context, userID, projectID, name string) (*Project, error)
	Touch(ctx context.Context, userID, projectID string) error
	Delete(ctx context.Context, userID, projectID string) error
}

// FirestoreMeta keeps project docs under users/{uid}/projects/{id}.
type FirestoreMeta struct {
	client *firestore.Client
}

func NewFirestoreMeta(client *firestore.Client) *FirestoreMeta {
	return &FirestoreMeta{client: client}
}

func (m *FirestoreMeta) doc(userID, projectID string) *firestore.DocumentRef {
	return m.client.Collection("users").Doc(userID).Collection("projects").Doc(projectID)
}

func (m *FirestoreMeta) Create(ctx context.Context, userID, projectID, name string) (*Project, error) {
	now := time.Now().UTC()
	p := &Project{ID: projectID, Name: name, CreatedAt: now, UpdatedAt: now}

	if _, err := m.doc(userID, projectID).Set(ctx, p); err != nil {
		return nil, fmt.Errorf("create project doc: %w", err)
	}
	return p, nil
}

func (m *FirestoreMeta) Get(ctx context.Context, userID, projectID string) (*Project, error) {
	snap, err := m.doc(userID, projectID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, apperr.NotFound("project %s", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch project doc: %w", err)
	}

	var p Project
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode project doc: %w", err)
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (m *FirestoreMeta) List(ctx context.Context, userID string) ([]Project, error) {
	it := m.client.Collection("users").Doc(userID).Collection("projects").
		OrderBy("updatedAt", firestore.Desc).Documents(ctx)
	defer it.Stop()

	out := make([]Project, 0, 16)
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list projects: %w", err)
		}

		var p Project
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("decode project doc: %w", err)
		}
		p.ID = snap.Ref.ID
		out = append(out, p)
	}
	return out, nil
}

func (m *FirestoreMeta) Rename(ctx context.Context, userID, projectID, name string) (*Project, error) {
	_, err := m.doc(userID, projectID).Update(ctx, []firestore.Update{
		{Path: "name", Value: name},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if status.Code(err) == codes.NotFound {
		return nil, apperr.NotFound("project %s", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("rename project: %w", err)
	}
	return m.Get(ctx, userID, projectID)
}

func (m *FirestoreMeta) Touch(ctx context.Context, userID, projectID string) error {
	_, err := m.doc(userID, projectID).Update(ctx, []firestore.Update{
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if status.Code(err) == codes.NotFound {
		return apperr.NotFound("project %s", projectID)
	}
	return err
}

func (m *FirestoreMeta) Delete(ctx context.Context, userID, projectID string) error {
	_, err := m.doc(userID, projectID).Delete(ctx)
	return err
}
