package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/citeassist/engine/internal/citeerr"
	"github.com/citeassist/engine/internal/domain"
)

// FindSyncRecord looks up the (user_id, remote_key) unique pair C12's
// reconciliation step checks before deciding to skip/update/create.
func (r *Repo) FindSyncRecord(ctx context.Context, userID, remoteKey string) (domain.ExternalSyncRecord, bool, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, user_id, remote_library_id, remote_key, remote_version, paper_id,
       last_synced, status, last_error
FROM external_sync_records WHERE user_id = $1 AND remote_key = $2`, userID, remoteKey)

	var rec domain.ExternalSyncRecord
	var lastSynced *time.Time
	err := row.Scan(&rec.ID, &rec.UserID, &rec.RemoteLibraryID, &rec.RemoteKey,
		&rec.RemoteVersion, &rec.PaperID, &lastSynced, &rec.Status, &rec.LastError)
	if err == pgx.ErrNoRows {
		return domain.ExternalSyncRecord{}, false, nil
	}
	if err != nil {
		return domain.ExternalSyncRecord{}, false, citeerr.New(citeerr.Transient, "sync_record", remoteKey, err)
	}
	if lastSynced != nil {
		rec.LastSynced = *lastSynced
	}
	return rec, true, nil
}

// SaveSyncRecord upserts rec by id.
func (r *Repo) SaveSyncRecord(ctx context.Context, rec domain.ExternalSyncRecord) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO external_sync_records (id, user_id, remote_library_id, remote_key,
  remote_version, paper_id, last_synced, status, last_error)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  remote_library_id = EXCLUDED.remote_library_id,
  remote_version = EXCLUDED.remote_version,
  paper_id = EXCLUDED.paper_id,
  last_synced = EXCLUDED.last_synced,
  status = EXCLUDED.status,
  last_error = EXCLUDED.last_error`,
		rec.ID, rec.UserID, rec.RemoteLibraryID, rec.RemoteKey, rec.RemoteVersion,
		rec.PaperID, rec.LastSynced, string(rec.Status), rec.LastError)
	if err != nil {
		return citeerr.New(citeerr.Transient, "sync_record", rec.ID, err)
	}
	return nil
}

// GetLibraryConfig loads a user's external-library integration settings.
func (r *Repo) GetLibraryConfig(ctx context.Context, userID string) (domain.UserLibraryConfig, error) {
	row := r.pool.QueryRow(ctx, `
SELECT user_id, api_key, remote_user_id, auto_sync, auto_sync_interval_sec,
       last_sync, last_sync_status, selected_groups, selected_collections
FROM user_library_configs WHERE user_id = $1`, userID)

	var cfg domain.UserLibraryConfig
	var intervalSec int
	var lastSync *time.Time
	var collectionsJSON []byte
	if err := row.Scan(&cfg.UserID, &cfg.APIKey, &cfg.RemoteUserID, &cfg.AutoSync,
		&intervalSec, &lastSync, &cfg.LastSyncStatus, &cfg.SelectedGroups, &collectionsJSON); err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserLibraryConfig{}, citeerr.New(citeerr.NotFound, "library_config", userID, err)
		}
		return domain.UserLibraryConfig{}, citeerr.New(citeerr.Transient, "library_config", userID, err)
	}
	cfg.AutoSyncInterval = time.Duration(intervalSec) * time.Second
	if lastSync != nil {
		cfg.LastSync = *lastSync
	}
	if len(collectionsJSON) > 0 {
		if err := json.Unmarshal(collectionsJSON, &cfg.SelectedCollections); err != nil {
			return domain.UserLibraryConfig{}, citeerr.New(citeerr.ProcessingFailed, "library_config", userID, err)
		}
	}
	for _, c := range cfg.SelectedCollections {
		if c.LibraryID == "" {
			cfg.HasLegacyCollections = true
			break
		}
	}
	return cfg, nil
}

// SaveLibraryConfig upserts a user's external-library integration settings.
func (r *Repo) SaveLibraryConfig(ctx context.Context, cfg domain.UserLibraryConfig) error {
	collectionsJSON, err := json.Marshal(cfg.SelectedCollections)
	if err != nil {
		return citeerr.New(citeerr.ProcessingFailed, "library_config", cfg.UserID, err)
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO user_library_configs (user_id, api_key, remote_user_id, auto_sync,
  auto_sync_interval_sec, last_sync, last_sync_status, selected_groups, selected_collections)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (user_id) DO UPDATE SET
  api_key = EXCLUDED.api_key, remote_user_id = EXCLUDED.remote_user_id,
  auto_sync = EXCLUDED.auto_sync, auto_sync_interval_sec = EXCLUDED.auto_sync_interval_sec,
  last_sync = EXCLUDED.last_sync, last_sync_status = EXCLUDED.last_sync_status,
  selected_groups = EXCLUDED.selected_groups, selected_collections = EXCLUDED.selected_collections`,
		cfg.UserID, cfg.APIKey, cfg.RemoteUserID, cfg.AutoSync,
		int(cfg.AutoSyncInterval/time.Second), orNil(cfg.LastSync), cfg.LastSyncStatus,
		cfg.SelectedGroups, collectionsJSON)
	if err != nil {
		return citeerr.New(citeerr.Transient, "library_config", cfg.UserID, err)
	}
	return nil
}

func orNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
