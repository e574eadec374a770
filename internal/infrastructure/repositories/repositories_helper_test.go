package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createUserTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		full_name TEXT,
		phone TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT 0,
		marketing_opt_in BOOLEAN NOT NULL DEFAULT 0,
		ekyc_status TEXT NOT NULL DEFAULT 'unverified',
		account_status TEXT NOT NULL DEFAULT 'unverified',
		ekyc_request_id TEXT,
		ekyc_verified_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createVerificationTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE ekyc_events (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		contract_id TEXT,
		kind TEXT NOT NULL,
		provider TEXT NOT NULL,
		status TEXT NOT NULL,
		score REAL,
		state TEXT,
		raw TEXT,
		created_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE onewon_verifies (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		contract_id TEXT,
		request_id TEXT NOT NULL UNIQUE,
		verify_type TEXT NOT NULL,
		code TEXT,
		bank_code TEXT NOT NULL,
		account_no TEXT NOT NULL,
		account_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		provider_raw TEXT,
		created_at DATETIME,
		confirmed_at DATETIME
	);`)
}

func createContractTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE contracts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		amount INTEGER,
		counterparty_name TEXT,
		counterparty_account TEXT,
		memo TEXT,
		status TEXT NOT NULL DEFAULT 'draft',
		rejected_reason TEXT,
		submitted_at DATETIME,
		approved_at DATETIME,
		rejected_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE contract_files (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		original_name TEXT NOT NULL,
		mime TEXT NOT NULL,
		size INTEGER NOT NULL,
		saved_name TEXT NOT NULL UNIQUE,
		doc_type TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		admin_note TEXT,
		reviewer_id TEXT,
		reviewed_at DATETIME,
		created_at DATETIME
	);`)
}

func createUploadTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE uploads (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		original_name TEXT NOT NULL,
		mime TEXT NOT NULL,
		size INTEGER NOT NULL,
		saved_name TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL DEFAULT 'general',
		doc_type TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		admin_note TEXT,
		reviewer_id TEXT,
		reviewed_at DATETIME,
		created_at DATETIME
	);`)
}

func createPaymentTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		contract_id TEXT,
		category TEXT NOT NULL,
		title TEXT NOT NULL,
		amount INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		method TEXT NOT NULL,
		customer_name TEXT,
		email TEXT,
		phone TEXT,
		tid TEXT,
		result_code TEXT,
		result_message TEXT,
		paid_at DATETIME,
		failed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createRegistryTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE registry_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		vendor TEXT NOT NULL,
		address TEXT,
		unique_key TEXT NOT NULL UNIQUE,
		external_id TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		message TEXT,
		cost_point INTEGER,
		saved_file TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createAllTables(t *testing.T, db *gorm.DB) {
	createUserTable(t, db)
	createVerificationTables(t, db)
	createContractTables(t, db)
	createUploadTable(t, db)
	createPaymentTable(t, db)
	createRegistryTable(t, db)
}
