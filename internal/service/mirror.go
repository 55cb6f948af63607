package service

import (
	"context"
	"fmt"

	"brainstorm-coach/internal/model"
	"brainstorm-coach/internal/vectorstore"
)

// Mirror copies relational writes into the vector store and maintains the
// bidirectional reference edges. Best effort: a failure after the relational
// write leaves the mirror incomplete, which callers accept and surface.
type Mirror struct {
	vectors *vectorstore.Store
}

func NewMirror(vectors *vectorstore.Store) *Mirror {
	return &Mirror{vectors: vectors}
}

func (m *Mirror) CreateBrainstorm(ctx context.Context, brainstorm *model.Brainstorm) error {
	props := map[string]any{
		"brainstormId": brainstorm.ID,
		"userId":       brainstorm.UserID,
		"title":        brainstorm.Title,
	}
	if _, err := m.vectors.CreateObject(ctx, vectorstore.ClassBrainstorm, props); err != nil {
		return fmt.Errorf("mirror brainstorm failed: %w", err)
	}
	return nil
}

// CreateMessage mirrors a message and links it to its brainstorm object in
// both directions.
func (m *Mirror) CreateMessage(ctx context.Context, message *model.BrainstormMessage) error {
	brainstormObj, err := m.vectors.FindByProperty(ctx, vectorstore.ClassBrainstorm, "brainstormId", message.BrainstormID)
	if err != nil {
		return fmt.Errorf("look up mirrored brainstorm failed: %w", err)
	}
	if brainstormObj == nil {
		return fmt.Errorf("brainstorm %d has no vector mirror", message.BrainstormID)
	}

	props := map[string]any{
		"brainstormId":        message.BrainstormID,
		"brainstormMessageId": message.ID,
		"role":                message.Role,
		"content":             message.Content,
	}
	messageObjID, err := m.vectors.CreateObject(ctx, vectorstore.ClassBrainstormMessage, props)
	if err != nil {
		return fmt.Errorf("mirror message failed: %w", err)
	}

	if err := m.vectors.AddReference(ctx, brainstormObj.ID, vectorstore.PropertyHasMessages, messageObjID); err != nil {
		return fmt.Errorf("link brainstorm to message failed: %w", err)
	}
	if err := m.vectors.AddReference(ctx, messageObjID, vectorstore.PropertyHasBrainstorm, brainstormObj.ID); err != nil {
		return fmt.Errorf("link message to brainstorm failed: %w", err)
	}
	return nil
}

func (m *Mirror) UpdateSummary(ctx context.Context, brainstormID uint, summary string) error {
	obj, err := m.vectors.FindByProperty(ctx, vectorstore.ClassBrainstorm, "brainstormId", brainstormID)
	if err != nil {
		return fmt.Errorf("look up mirrored brainstorm failed: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("brainstorm %d has no vector mirror", brainstormID)
	}
	if err := m.vectors.UpdateProperties(ctx, obj.ID, map[string]any{"summary": summary}); err != nil {
		return fmt.Errorf("mirror summary failed: %w", err)
	}
	return nil
}

// DeleteMessage removes a message object and its edges. Reference edges go
// first so the store never holds a dangling link.
func (m *Mirror) DeleteMessage(ctx context.Context, messageID uint) error {
	obj, err := m.vectors.FindByProperty(ctx, vectorstore.ClassBrainstormMessage, "brainstormMessageId", messageID)
	if err != nil {
		return fmt.Errorf("look up mirrored message failed: %w", err)
	}
	if obj == nil {
		return nil
	}
	if err := m.vectors.DeleteReferencesOf(ctx, obj.ID); err != nil {
		return err
	}
	if err := m.vectors.DeleteObject(ctx, obj.ID); err != nil {
		return err
	}
	return nil
}

// DeleteBrainstorm cascades through the mirror: every reference edge in both
// directions, then every message object, then the brainstorm object.
func (m *Mirror) DeleteBrainstorm(ctx context.Context, brainstormID uint) error {
	obj, err := m.vectors.FindByProperty(ctx, vectorstore.ClassBrainstorm, "brainstormId", brainstormID)
	if err != nil {
		return fmt.Errorf("look up mirrored brainstorm failed: %w", err)
	}
	if obj == nil {
		return nil
	}

	refs, err := m.vectors.ReferencesFrom(ctx, obj.ID)
	if err != nil {
		return err
	}

	var messageObjIDs []string
	for _, ref := range refs {
		if ref.Property == vectorstore.PropertyHasMessages {
			messageObjIDs = append(messageObjIDs, ref.ToID)
		}
	}

	if err := m.vectors.DeleteReferencesOf(ctx, obj.ID); err != nil {
		return err
	}
	for _, id := range messageObjIDs {
		if err := m.vectors.DeleteReferencesOf(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range messageObjIDs {
		if err := m.vectors.DeleteObject(ctx, id); err != nil {
			return err
		}
	}
	if err := m.vectors.DeleteObject(ctx, obj.ID); err != nil {
		return err
	}
	return nil
}
