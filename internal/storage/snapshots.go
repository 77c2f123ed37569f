package storage

import (
	"encoding/json"
	"sort"

	"github.com/hakim/islandreport/internal/models"
	"go.etcd.io/bbolt"
)

// SaveSnapshot persists a snapshot and indexes it under its Island
func (s *Store) SaveSnapshot(snap *models.Snapshot) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}

		snapshots := tx.Bucket([]byte(bucketSnapshots))
		if err := snapshots.Put([]byte(snap.ID), data); err != nil {
			return err
		}

		// Update island -> []snapshot_id index
		index := tx.Bucket([]byte(bucketSnapshotIndex))
		islandKey := []byte(IslandKey(snap.Island))

		var ids []string
		if existing := index.Get(islandKey); existing != nil {
			if err := json.Unmarshal(existing, &ids); err != nil {
				return err
			}
		}

		for _, id := range ids {
			if id == snap.ID {
				return nil
			}
		}
		ids = append(ids, snap.ID)

		indexData, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		return index.Put(islandKey, indexData)
	})
}

// GetSnapshot retrieves a snapshot by ID. Returns nil, nil when not found.
func (s *Store) GetSnapshot(id string) (*models.Snapshot, error) {
	var snap *models.Snapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketSnapshots)).Get([]byte(id))
		if data == nil {
			return nil
		}

		snap = &models.Snapshot{}
		return json.Unmarshal(data, snap)
	})

	return snap, err
}

// ListSnapshots retrieves all snapshots for an Island, newest first.
// The Island URL is matched through IslandKey.
func (s *Store) ListSnapshots(island string) ([]*models.Snapshot, error) {
	var snaps []*models.Snapshot

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketSnapshotIndex)).Get([]byte(IslandKey(island)))
		if data == nil {
			return nil
		}

		var ids []string
		if err := json.Unmarshal(data, &ids); err != nil {
			return err
		}

		bucket := tx.Bucket([]byte(bucketSnapshots))
		for _, id := range ids {
			raw := bucket.Get([]byte(id))
			if raw == nil {
				continue
			}
			var snap models.Snapshot
			if err := json.Unmarshal(raw, &snap); err != nil {
				return err
			}
			snaps = append(snaps, &snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].GeneratedAt.After(snaps[j].GeneratedAt)
	})

	return snaps, nil
}

// GetLatestSnapshot retrieves the most recent snapshot for an Island
func (s *Store) GetLatestSnapshot(island string) (*models.Snapshot, error) {
	snaps, err := s.ListSnapshots(island)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return snaps[0], nil
}

// UpdateSnapshotStatus sets the status of a stored snapshot. Unknown IDs are a no-op.
func (s *Store) UpdateSnapshotStatus(id string, status models.SnapshotStatus) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketSnapshots))

		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}

		var snap models.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return err
		}
		snap.Status = status

		updated, err := json.Marshal(&snap)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), updated)
	})
}
