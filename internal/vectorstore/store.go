package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ClassBrainstorm        = "Brainstorm"
	ClassBrainstormMessage = "BrainstormMessage"

	PropertyHasMessages   = "hasMessages"
	PropertyHasBrainstorm = "hasBrainstorm"
)

// Object is a stored vector object: a class, a JSON property bag and an
// optional embedding stored as a JSON array of float32.
type Object struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Class      string    `gorm:"size:64;not null;index"`
	Properties string    `gorm:"type:text;not null"`
	Embedding  string    `gorm:"type:text"`
	CreatedAt  time.Time
}

func (Object) TableName() string { return "vector_objects" }

// Reference is one direction of a typed link between two objects.
type Reference struct {
	ID        uint      `gorm:"primaryKey"`
	FromID    string    `gorm:"size:36;not null;index"`
	Property  string    `gorm:"size:64;not null"`
	ToID      string    `gorm:"size:36;not null;index"`
	CreatedAt time.Time
}

func (Reference) TableName() string { return "vector_references" }

// ObjectData is the decoded form handed to callers.
type ObjectData struct {
	ID         string
	Class      string
	Properties map[string]any
	Vector     []float32
	CreatedAt  time.Time
}

// Embedder turns text into a vector. The production implementation is the
// OpenAI-compatible embeddings API; tests substitute a deterministic fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store keeps the denormalized vector mirror of the relational entities.
// BrainstormMessage objects are vectorized from their content property;
// Brainstorm objects carry the centroid (mean) of their referenced messages,
// recomputed whenever a hasMessages reference changes.
type Store struct {
	db       *gorm.DB
	embedder Embedder
}

func New(db *gorm.DB, embedder Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

// Models lists the gorm models the store persists, for schema bootstrap.
func Models() []any {
	return []any{&Object{}, &Reference{}}
}

// CreateObject stores a new object and returns its store-assigned id.
// Message objects are embedded from their content; brainstorm objects start
// without a vector until messages are referenced.
func (s *Store) CreateObject(ctx context.Context, class string, props map[string]any) (string, error) {
	propsJSON, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("marshal object properties failed: %w", err)
	}

	var embedding string
	if class == ClassBrainstormMessage {
		content, _ := props["content"].(string)
		if content != "" {
			vec, err := s.embedder.Embed(ctx, content)
			if err != nil {
				return "", fmt.Errorf("embed object content failed: %w", err)
			}
			embedding = encodeVector(vec)
		}
	}

	obj := Object{
		ID:         uuid.NewString(),
		Class:      class,
		Properties: string(propsJSON),
		Embedding:  embedding,
	}
	if err := s.db.WithContext(ctx).Create(&obj).Error; err != nil {
		return "", fmt.Errorf("create vector object failed: %w", err)
	}
	return obj.ID, nil
}

func (s *Store) GetObject(ctx context.Context, id string) (*ObjectData, error) {
	var obj Object
	if err := s.db.WithContext(ctx).First(&obj, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vector object failed: %w", err)
	}
	return decodeObject(&obj)
}

// UpdateProperties merges the given properties into the object's bag, the way
// a vector store "merge" update behaves.
func (s *Store) UpdateProperties(ctx context.Context, id string, props map[string]any) error {
	var obj Object
	if err := s.db.WithContext(ctx).First(&obj, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("vector object %s not found", id)
		}
		return fmt.Errorf("get vector object failed: %w", err)
	}

	merged := map[string]any{}
	if err := json.Unmarshal([]byte(obj.Properties), &merged); err != nil {
		return fmt.Errorf("decode object properties failed: %w", err)
	}
	for k, v := range props {
		merged[k] = v
	}
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal object properties failed: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&Object{}).Where("id = ?", id).
		Update("properties", string(mergedJSON)).Error; err != nil {
		return fmt.Errorf("update vector object failed: %w", err)
	}
	return nil
}

func (s *Store) DeleteObject(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&Object{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete vector object failed: %w", err)
	}
	return nil
}

// AddReference links fromID to toID under the given reference property.
// Adding a hasMessages reference refreshes the brainstorm centroid.
func (s *Store) AddReference(ctx context.Context, fromID, property, toID string) error {
	ref := Reference{FromID: fromID, Property: property, ToID: toID}
	if err := s.db.WithContext(ctx).Create(&ref).Error; err != nil {
		return fmt.Errorf("create vector reference failed: %w", err)
	}
	if property == PropertyHasMessages {
		if err := s.recomputeCentroid(ctx, fromID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteReference(ctx context.Context, fromID, property, toID string) error {
	if err := s.db.WithContext(ctx).
		Where("from_id = ? AND property = ? AND to_id = ?", fromID, property, toID).
		Delete(&Reference{}).Error; err != nil {
		return fmt.Errorf("delete vector reference failed: %w", err)
	}
	if property == PropertyHasMessages {
		if err := s.recomputeCentroid(ctx, fromID); err != nil {
			return err
		}
	}
	return nil
}

// ReferencesFrom returns all outgoing references of an object.
func (s *Store) ReferencesFrom(ctx context.Context, id string) ([]Reference, error) {
	var refs []Reference
	if err := s.db.WithContext(ctx).Where("from_id = ?", id).Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("list vector references failed: %w", err)
	}
	return refs, nil
}

// DeleteReferencesOf removes every edge touching the object, both directions.
// Objects that lose a hasMessages edge get their centroid refreshed, same as
// an explicit DeleteReference.
func (s *Store) DeleteReferencesOf(ctx context.Context, id string) error {
	var incoming []Reference
	if err := s.db.WithContext(ctx).
		Where("to_id = ? AND property = ?", id, PropertyHasMessages).
		Find(&incoming).Error; err != nil {
		return fmt.Errorf("list vector references failed: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Where("from_id = ? OR to_id = ?", id, id).
		Delete(&Reference{}).Error; err != nil {
		return fmt.Errorf("delete vector references failed: %w", err)
	}

	for _, ref := range incoming {
		if err := s.recomputeCentroid(ctx, ref.FromID); err != nil {
			return err
		}
	}
	return nil
}

// recomputeCentroid sets the object's vector to the mean of its referenced
// message vectors (ref2vec-centroid behavior); empty when none remain.
func (s *Store) recomputeCentroid(ctx context.Context, id string) error {
	var refs []Reference
	if err := s.db.WithContext(ctx).
		Where("from_id = ? AND property = ?", id, PropertyHasMessages).
		Find(&refs).Error; err != nil {
		return fmt.Errorf("list centroid references failed: %w", err)
	}

	var centroid []float32
	count := 0
	for _, ref := range refs {
		var target Object
		if err := s.db.WithContext(ctx).First(&target, "id = ?", ref.ToID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return fmt.Errorf("get referenced object failed: %w", err)
		}
		vec := decodeVector(target.Embedding)
		if len(vec) == 0 {
			continue
		}
		if centroid == nil {
			centroid = make([]float32, len(vec))
		}
		if len(vec) != len(centroid) {
			continue
		}
		for i := range vec {
			centroid[i] += vec[i]
		}
		count++
	}

	encoded := ""
	if count > 0 {
		for i := range centroid {
			centroid[i] /= float32(count)
		}
		encoded = encodeVector(centroid)
	}

	if err := s.db.WithContext(ctx).Model(&Object{}).Where("id = ?", id).
		Update("embedding", encoded).Error; err != nil {
		return fmt.Errorf("update centroid vector failed: %w", err)
	}
	return nil
}

func decodeObject(obj *Object) (*ObjectData, error) {
	props := map[string]any{}
	if err := json.Unmarshal([]byte(obj.Properties), &props); err != nil {
		return nil, fmt.Errorf("decode object properties failed: %w", err)
	}
	return &ObjectData{
		ID:         obj.ID,
		Class:      obj.Class,
		Properties: props,
		Vector:     decodeVector(obj.Embedding),
		CreatedAt:  obj.CreatedAt,
	}, nil
}

func encodeVector(vec []float32) string {
	if len(vec) == 0 {
		return ""
	}
	b, _ := json.Marshal(vec)
	return string(b)
}

func decodeVector(raw string) []float32 {
	if raw == "" {
		return nil
	}
	var vec []float32
	_ = json.Unmarshal([]byte(raw), &vec)
	return vec
}
