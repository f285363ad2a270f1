package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/esacci/odpcore/internal/model"
)

// Store is a snapshot cache for DatasetRecord and FeatureList values.
// The portal only calls Discard on it; no catalog or feature-list lookup
// reads snapshots from it or writes them to it.
type Store struct {
	client *Client
	ttl    time.Duration
}

func NewStore(client *Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) GetRecord(ctx context.Context, drsID model.DrsId) (*model.DatasetRecord, bool, error) {
	raw, ok, err := s.client.Get(ctx, RecordKey(string(drsID)))
	if err != nil || !ok {
		return nil, false, err
	}
	var rec model.DatasetRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("rediscache: decode record %s: %w", drsID, err)
	}
	return &rec, true, nil
}

func (s *Store) PutRecord(ctx context.Context, rec *model.DatasetRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("rediscache: encode record %s: %w", rec.DrsID, err)
	}
	return s.client.Set(ctx, RecordKey(string(rec.DrsID)), raw, s.ttl)
}

func (s *Store) GetFeatureList(ctx context.Context, drsID model.DrsId) (model.FeatureList, bool, error) {
	raw, ok, err := s.client.Get(ctx, FeatureListKey(string(drsID)))
	if err != nil || !ok {
		return nil, false, err
	}
	var list model.FeatureList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false, fmt.Errorf("rediscache: decode feature list %s: %w", drsID, err)
	}
	return list, true, nil
}

func (s *Store) PutFeatureList(ctx context.Context, drsID model.DrsId, list model.FeatureList) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("rediscache: encode feature list %s: %w", drsID, err)
	}
	return s.client.Set(ctx, FeatureListKey(string(drsID)), raw, s.ttl)
}

// Discard drops every snapshot for drsID, used by internal/invalidation
// when an external "source refreshed" event arrives.
func (s *Store) Discard(ctx context.Context, drsID model.DrsId) error {
	return s.client.Del(ctx, RecordKey(string(drsID)), FeatureListKey(string(drsID)))
}
