/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

const (
	// Account queries
	accountColumns = `user_id, email, full_name, referral_code, balance, total_earned,
		is_activated, activation_date, activation_ref, created_at, updated_at`

	queryInsertAccount = `
		INSERT INTO accounts (user_id, email, full_name, referral_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetAccount = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = ?`

	queryGetAccountByReferralCode = `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE referral_code = ?`

	queryListAccountIds = `
		SELECT user_id FROM accounts ORDER BY created_at, user_id`

	queryUpdateAccount = `
		UPDATE accounts
		SET balance = ?, total_earned = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND total_earned <= ?`

	queryMarkActivated = `
		UPDATE accounts
		SET is_activated = 1, activation_date = ?, activation_ref = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND is_activated = 0`

	// Entry queries
	entryColumns = `id, account_id, kind, amount, balance_after, status,
		idempotency_key, related_entry_id, description, created_at`

	queryInsertEntry = `
		INSERT INTO ledger_entries (
			id, account_id, kind, amount, balance_after, status,
			idempotency_key, related_entry_id, description, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + entryColumns

	queryGetEntry = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = ?`

	queryFindEntryByIdempotencyKey = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE idempotency_key = ?`

	queryUpdateEntryStatus = `
		UPDATE ledger_entries
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`

	queryListEntries = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryReconcileBalance = `
		SELECT COALESCE(SUM(amount), 0) AS calculated_balance
		FROM ledger_entries
		WHERE account_id = ?`

	// Referral queries
	referralColumns = `referrer_id, referred_id, bonus_paid, created_at, paid_at`

	queryInsertReferralEdge = `
		INSERT INTO referral_edges (referrer_id, referred_id, created_at)
		VALUES (?, ?, ?)`

	queryGetReferralEdge = `
		SELECT ` + referralColumns + `
		FROM referral_edges
		WHERE referrer_id = ? AND referred_id = ?`

	queryGetReferrer = `
		SELECT ` + referralColumns + `
		FROM referral_edges
		WHERE referred_id = ?`

	queryListReferrals = `
		SELECT ` + referralColumns + `
		FROM referral_edges
		WHERE referrer_id = ?
		ORDER BY created_at DESC`

	queryMarkReferralPaid = `
		UPDATE referral_edges
		SET bonus_paid = ?, paid_at = ?
		WHERE referrer_id = ? AND referred_id = ? AND bonus_paid = 0`

	// Streak queries
	queryGetStreak = `
		SELECT user_id, current_streak, longest_streak, last_claim_date, total_claimed, updated_at
		FROM streak_states
		WHERE user_id = ?`

	queryUpsertStreak = `
		INSERT INTO streak_states (user_id, current_streak, longest_streak, last_claim_date, total_claimed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			last_claim_date = excluded.last_claim_date,
			total_claimed = excluded.total_claimed,
			updated_at = excluded.updated_at`

	// Withdrawal queries
	withdrawalColumns = `id, user_id, amount, fee, bank_name, account_number, account_name,
		status, reference, entry_id, created_at, updated_at`

	queryInsertWithdrawal = `
		INSERT INTO withdrawal_requests (
			id, user_id, amount, fee, bank_name, account_number, account_name,
			status, reference, entry_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?, ?)
		RETURNING ` + withdrawalColumns

	queryGetWithdrawal = `
		SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE id = ?`

	queryListWithdrawals = `
		SELECT ` + withdrawalColumns + `
		FROM withdrawal_requests
		WHERE (? = '' OR user_id = ?) AND (? = '' OR status = ?)
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Idempotency key queries
	idempotencyColumns = `idem_key, operation, fingerprint, account_id, status, result,
		error_code, attempts, created_at, updated_at`

	queryGetIdempotencyKey = `
		SELECT ` + idempotencyColumns + `
		FROM idempotency_keys
		WHERE idem_key = ?`

	queryInsertIdempotencyKey = `
		INSERT INTO idempotency_keys (idem_key, operation, fingerprint, account_id, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', 1, ?, ?)`

	queryReclaimIdempotencyKey = `
		UPDATE idempotency_keys
		SET status = 'pending', error_code = '', attempts = attempts + 1, updated_at = ?
		WHERE idem_key = ? AND status = 'failed'`

	queryCompleteIdempotencyKey = `
		UPDATE idempotency_keys
		SET status = 'completed', result = ?, error_code = '', updated_at = ?
		WHERE idem_key = ? AND status = 'pending'`

	queryResolveIdempotencyKey = `
		UPDATE idempotency_keys
		SET status = ?, error_code = ?, updated_at = ?
		WHERE idem_key = ? AND status = 'pending'`

	queryListStalePendingKeys = `
		SELECT ` + idempotencyColumns + `
		FROM idempotency_keys
		WHERE status = 'pending' AND updated_at < ?
		ORDER BY updated_at
		LIMIT ?`
)
