package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
)

type Op int

const (
	OpEqual Op = iota
	OpNotEqual
	OpIsNull
	OpNotNull
)

// Predicate is one scalar filter over an object property. A query's
// predicates are combined with boolean AND.
type Predicate struct {
	Key   string
	Op    Op
	Value any
}

// Query is a nearest-neighbor search: anchored on an object id or an explicit
// vector, filtered by predicates, capped by Limit and MaxDistance.
type Query struct {
	Class        string
	NearObjectID string
	NearVector   []float32
	Where        []Predicate
	Limit        int
	MaxDistance  float64 // 0 = no threshold
}

// Hit is a matched object with its cosine distance from the anchor.
type Hit struct {
	Object   ObjectData
	Distance float64
}

// FindByProperty returns the first object of the class whose property equals
// the given value, or nil when none matches.
func (s *Store) FindByProperty(ctx context.Context, class, key string, value any) (*ObjectData, error) {
	var objects []Object
	if err := s.db.WithContext(ctx).Where("class = ?", class).Find(&objects).Error; err != nil {
		return nil, fmt.Errorf("list vector objects failed: %w", err)
	}
	for i := range objects {
		data, err := decodeObject(&objects[i])
		if err != nil {
			return nil, err
		}
		if propertyEqual(data.Properties[key], value) {
			return data, nil
		}
	}
	return nil, nil
}

// Search runs a brute-force cosine nearest-neighbor scan over the class.
// Results are ordered by ascending distance. A missing near-object anchor
// yields an empty result, matching the null-read convention.
func (s *Store) Search(ctx context.Context, q Query) ([]Hit, error) {
	anchor := q.NearVector
	if q.NearObjectID != "" {
		obj, err := s.GetObject(ctx, q.NearObjectID)
		if err != nil {
			return nil, err
		}
		if obj == nil {
			return nil, nil
		}
		anchor = obj.Vector
	}
	if len(anchor) == 0 {
		return nil, nil
	}

	var objects []Object
	if err := s.db.WithContext(ctx).Where("class = ?", q.Class).Find(&objects).Error; err != nil {
		return nil, fmt.Errorf("list vector objects failed: %w", err)
	}

	var hits []Hit
	for i := range objects {
		if objects[i].ID == q.NearObjectID {
			continue
		}
		data, err := decodeObject(&objects[i])
		if err != nil {
			return nil, err
		}
		if !matchPredicates(data.Properties, q.Where) {
			continue
		}
		if len(data.Vector) == 0 {
			continue
		}
		distance := 1 - cosineSimilarity(anchor, data.Vector)
		if q.MaxDistance > 0 && distance > q.MaxDistance {
			continue
		}
		hits = append(hits, Hit{Object: *data, Distance: distance})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

func matchPredicates(props map[string]any, predicates []Predicate) bool {
	for _, p := range predicates {
		value, exists := props[p.Key]
		switch p.Op {
		case OpEqual:
			if !propertyEqual(value, p.Value) {
				return false
			}
		case OpNotEqual:
			if propertyEqual(value, p.Value) {
				return false
			}
		case OpIsNull:
			if exists && value != nil && value != "" {
				return false
			}
		case OpNotNull:
			if !exists || value == nil || value == "" {
				return false
			}
		}
	}
	return true
}

// propertyEqual compares a decoded JSON property against a Go value; all
// numeric types collapse to float64 the way JSON round-trips them.
func propertyEqual(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
