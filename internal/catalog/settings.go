// SPDX-License-Identifier: MIT

package catalog

import (
	"context"
	"database/sql"
)

// GetSyncSettings returns the persisted sync settings for account, or the
// defaults (materialized, not yet persisted) if none have been written.
func (s *Store) GetSyncSettings(ctx context.Context, account string) (SyncSettings, error) {
	const op = "GetSyncSettings"
	if err := validateAccount(op, account); err != nil {
		return SyncSettings{}, err
	}

	var st SyncSettings
	var autoSync, wifiOnly, notify int
	row := s.db.QueryRowContext(ctx, `
		SELECT auto_sync_enabled, sync_interval_hours, wifi_only, notify_on_complete
		FROM sync_settings WHERE account = ?`, account)
	err := row.Scan(&autoSync, &st.SyncIntervalHours, &wifiOnly, &notify)
	if err == sql.ErrNoRows {
		return DefaultSyncSettings(account), nil
	}
	if err != nil {
		return SyncSettings{}, newErr(op, KindDatabase, account, err)
	}
	st.Account = account
	st.AutoSyncEnabled = autoSync != 0
	st.WiFiOnly = wifiOnly != 0
	st.NotifyOnComplete = notify != 0
	return st, nil
}

// UpdateSyncSettings persists settings for account, enforcing the
// MinSyncIntervalHours floor (invariant I5/I8): a caller-supplied interval
// below the floor is rejected with a validation error, leaving the prior
// persisted settings untouched.
func (s *Store) UpdateSyncSettings(ctx context.Context, settings SyncSettings) error {
	const op = "UpdateSyncSettings"
	if err := validateAccount(op, settings.Account); err != nil {
		return err
	}
	if settings.SyncIntervalHours < MinSyncIntervalHours {
		return newErr(op, KindValidation, settings.Account,
			ErrSyncIntervalTooLow)
	}

	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO sync_settings (account, auto_sync_enabled, sync_interval_hours, wifi_only, notify_on_complete)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(account) DO UPDATE SET
				auto_sync_enabled=excluded.auto_sync_enabled,
				sync_interval_hours=excluded.sync_interval_hours,
				wifi_only=excluded.wifi_only,
				notify_on_complete=excluded.notify_on_complete
		`, settings.Account, boolToInt(settings.AutoSyncEnabled), settings.SyncIntervalHours,
			boolToInt(settings.WiFiOnly), boolToInt(settings.NotifyOnComplete))
		return err
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
