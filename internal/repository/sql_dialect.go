package repository

import (
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported engines.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2) instead of ?.
	numbered bool
	// Row lock suffix for SELECT inside a transaction.
	forUpdate string
	// Statement that inserts a row only when the key is free.
	insertIgnore string
	schema       []string
}

// Supported dialects.
var (
	SQLite = Dialect{
		Name:         "sqlite",
		insertIgnore: "INSERT OR IGNORE INTO",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS economy_accounts (
				user_id TEXT PRIMARY KEY,
				money INTEGER NOT NULL,
				bank INTEGER NOT NULL,
				level INTEGER NOT NULL,
				exp INTEGER NOT NULL,
				payload TEXT NOT NULL,
				version INTEGER NOT NULL DEFAULT 0,
				updated_at INTEGER NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ledger_journal (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				entry_id TEXT NOT NULL UNIQUE,
				user_id TEXT NOT NULL,
				entry_type TEXT NOT NULL,
				amount INTEGER NOT NULL,
				balance_after INTEGER NOT NULL,
				counterparty_id TEXT NOT NULL DEFAULT '',
				reference TEXT NOT NULL DEFAULT '',
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_journal_user ON ledger_journal(user_id, seq)`,
		},
	}

	Postgres = Dialect{
		Name:         "postgres",
		numbered:     true,
		forUpdate:    " FOR UPDATE",
		insertIgnore: "INSERT INTO",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS economy_accounts (
				user_id TEXT PRIMARY KEY,
				money BIGINT NOT NULL,
				bank BIGINT NOT NULL,
				level INTEGER NOT NULL,
				exp BIGINT NOT NULL,
				payload JSONB NOT NULL,
				version BIGINT NOT NULL DEFAULT 0,
				updated_at BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ledger_journal (
				seq BIGSERIAL PRIMARY KEY,
				entry_id TEXT NOT NULL UNIQUE,
				user_id TEXT NOT NULL,
				entry_type TEXT NOT NULL,
				amount BIGINT NOT NULL,
				balance_after BIGINT NOT NULL,
				counterparty_id TEXT NOT NULL DEFAULT '',
				reference TEXT NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_journal_user ON ledger_journal(user_id, seq)`,
		},
	}

	MySQL = Dialect{
		Name:         "mysql",
		forUpdate:    " FOR UPDATE",
		insertIgnore: "INSERT IGNORE INTO",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS economy_accounts (
				user_id VARCHAR(191) PRIMARY KEY,
				money BIGINT NOT NULL,
				bank BIGINT NOT NULL,
				level INT NOT NULL,
				exp BIGINT NOT NULL,
				payload LONGTEXT NOT NULL,
				version BIGINT NOT NULL DEFAULT 0,
				updated_at BIGINT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ledger_journal (
				seq BIGINT AUTO_INCREMENT PRIMARY KEY,
				entry_id VARCHAR(64) NOT NULL UNIQUE,
				user_id VARCHAR(191) NOT NULL,
				entry_type VARCHAR(32) NOT NULL,
				amount BIGINT NOT NULL,
				balance_after BIGINT NOT NULL,
				counterparty_id VARCHAR(191) NOT NULL DEFAULT '',
				reference VARCHAR(191) NOT NULL DEFAULT '',
				created_at BIGINT NOT NULL,
				INDEX idx_journal_user (user_id, seq)
			)`,
		},
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d Dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// createIfMissing inserts a default row unless user_id already exists.
func (d Dialect) createIfMissing() string {
	q := d.insertIgnore + ` economy_accounts (user_id, money, bank, level, exp, payload, version, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if d.Name == "postgres" {
		q += " ON CONFLICT (user_id) DO NOTHING"
	}
	return d.rebind(q)
}

func (d Dialect) selectAccount() string {
	return d.rebind(`SELECT payload, version FROM economy_accounts WHERE user_id = ?`)
}

func (d Dialect) selectForUpdate() string {
	return d.selectAccount() + d.forUpdate
}

func (d Dialect) updateAccount() string {
	return d.rebind(`UPDATE economy_accounts
		SET money = ?, bank = ?, level = ?, exp = ?, payload = ?, version = ?, updated_at = ?
		WHERE user_id = ?`)
}
