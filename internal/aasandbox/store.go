package aasandbox

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zmrishh/moneyai/internal/aa"
)

const schema = `
CREATE TABLE fips (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    fi_types TEXT NOT NULL DEFAULT ''
);

CREATE TABLE fip_identifiers (
    fip_id TEXT NOT NULL REFERENCES fips(id),
    category TEXT NOT NULL,
    type TEXT NOT NULL
);

CREATE TABLE accounts (
    account_reference_number TEXT PRIMARY KEY,
    fip_id TEXT NOT NULL REFERENCES fips(id),
    mobile TEXT NOT NULL,
    masked_account_number TEXT NOT NULL,
    account_type TEXT NOT NULL,
    fi_type TEXT NOT NULL,
    linked INTEGER NOT NULL DEFAULT 0,
    link_reference_number TEXT NOT NULL DEFAULT ''
);
CREATE INDEX idx_accounts_discovery ON accounts(fip_id, mobile);

CREATE TABLE sessions (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);

CREATE TABLE logins (
    otp_reference TEXT PRIMARY KEY,
    mobile TEXT NOT NULL,
    consent_handle TEXT NOT NULL,
    verified INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE links (
    reference TEXT PRIMARY KEY,
    fip_id TEXT NOT NULL,
    confirmed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);

CREATE TABLE link_accounts (
    link_reference TEXT NOT NULL REFERENCES links(reference),
    account_reference_number TEXT NOT NULL
);

CREATE TABLE consents (
    handle TEXT PRIMARY KEY,
    purpose TEXT NOT NULL,
    data_from TEXT NOT NULL,
    data_to TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    frequency TEXT NOT NULL DEFAULT '',
    fetch_type TEXT NOT NULL DEFAULT '',
    mode TEXT NOT NULL DEFAULT '',
    data_life TEXT NOT NULL DEFAULT '',
    fi_types TEXT NOT NULL DEFAULT '',
    requester TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'PENDING',
    consent_id TEXT NOT NULL DEFAULT ''
);
`

// Store is the sandbox's in-memory SQLite state: canned FIPs, discoverable
// accounts keyed by mobile number, and consent records.
type Store struct {
	conn *sql.DB
}

// OpenStore creates the in-memory database, applies the schema, and seeds
// the canned providers and accounts.
func OpenStore() (*Store, error) {
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sandbox db: %w", err)
	}

	// One connection: each new :memory: connection is a fresh empty database.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create sandbox schema: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.seed(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("seed sandbox: %w", err)
	}

	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

type seedFIP struct {
	id          string
	name        string
	fiTypes     string
	identifiers [][2]string // category, type
}

type seedAccount struct {
	ref     string
	fipID   string
	mobile  string
	masked  string
	accType string
	fiType  string
}

func (s *Store) seed() error {
	fips := []seedFIP{
		{"fip-hdfc", "HDFC Bank", "DEPOSIT,RECURRING_DEPOSIT", [][2]string{
			{"STRONG", "MOBILE"},
			{"WEAK", "PAN"},
		}},
		{"fip-sbi", "State Bank of India", "DEPOSIT,TERM_DEPOSIT", [][2]string{
			{"STRONG", "MOBILE"},
		}},
		{"fip-icici", "ICICI Bank", "DEPOSIT", [][2]string{
			{"STRONG", "MOBILE"},
			{"ANCILLARY", "ACCNO"},
		}},
	}

	accounts := []seedAccount{
		{"acc-hdfc-001", "fip-hdfc", "9876543210", "XXXXXX1234", "SAVINGS", "DEPOSIT"},
		{"acc-hdfc-002", "fip-hdfc", "9876543210", "XXXXXX5678", "CURRENT", "DEPOSIT"},
		{"acc-sbi-001", "fip-sbi", "9876543210", "XXXXXX4321", "SAVINGS", "DEPOSIT"},
		{"acc-icici-001", "fip-icici", "9123456780", "XXXXXX9876", "SAVINGS", "DEPOSIT"},
	}

	for _, f := range fips {
		if _, err := s.conn.Exec(
			"INSERT INTO fips (id, name, fi_types) VALUES (?, ?, ?)",
			f.id, f.name, f.fiTypes,
		); err != nil {
			return err
		}
		for _, ident := range f.identifiers {
			if _, err := s.conn.Exec(
				"INSERT INTO fip_identifiers (fip_id, category, type) VALUES (?, ?, ?)",
				f.id, ident[0], ident[1],
			); err != nil {
				return err
			}
		}
	}

	for _, a := range accounts {
		if _, err := s.conn.Exec(
			"INSERT INTO accounts (account_reference_number, fip_id, mobile, masked_account_number, account_type, fi_type) VALUES (?, ?, ?, ?, ?, ?)",
			a.ref, a.fipID, a.mobile, a.masked, a.accType, a.fiType,
		); err != nil {
			return err
		}
	}

	return nil
}

// --- Sessions ---

func (s *Store) CreateSession(id string) error {
	_, err := s.conn.Exec(
		"INSERT INTO sessions (id, created_at) VALUES (?, ?)",
		id, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) HasSession(id string) (bool, error) {
	var one int
	err := s.conn.QueryRow("SELECT 1 FROM sessions WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) DeleteSession(id string) error {
	_, err := s.conn.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

// --- Logins ---

func (s *Store) CreateLogin(otpReference, mobile, consentHandle string) error {
	_, err := s.conn.Exec(
		"INSERT INTO logins (otp_reference, mobile, consent_handle, created_at) VALUES (?, ?, ?, ?)",
		otpReference, mobile, consentHandle, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// VerifyLogin marks the login verified and returns its mobile number.
// The bool is false when the reference is unknown.
func (s *Store) VerifyLogin(otpReference string) (string, bool, error) {
	var mobile string
	err := s.conn.QueryRow(
		"SELECT mobile FROM logins WHERE otp_reference = ?", otpReference,
	).Scan(&mobile)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if _, err := s.conn.Exec(
		"UPDATE logins SET verified = 1 WHERE otp_reference = ?", otpReference,
	); err != nil {
		return "", false, err
	}
	return mobile, true, nil
}

// --- FIPs ---

func (s *Store) ListFIPs() ([]aa.FIP, error) {
	rows, err := s.conn.Query("SELECT id, name, fi_types FROM fips ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fips []aa.FIP
	for rows.Next() {
		var f aa.FIP
		var fiTypes string
		if err := rows.Scan(&f.ID, &f.Name, &fiTypes); err != nil {
			return nil, err
		}
		if fiTypes != "" {
			f.FITypes = strings.Split(fiTypes, ",")
		}
		fips = append(fips, f)
	}
	return fips, rows.Err()
}

// GetFIPDetails returns a provider's identifier requirements. The bool is
// false when the FIP is unknown.
func (s *Store) GetFIPDetails(fipID string) (*aa.FIPDetails, bool, error) {
	var details aa.FIPDetails
	err := s.conn.QueryRow(
		"SELECT id, name FROM fips WHERE id = ?", fipID,
	).Scan(&details.FIPID, &details.Name)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rows, err := s.conn.Query(
		"SELECT category, type FROM fip_identifiers WHERE fip_id = ?", fipID,
	)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var spec aa.IdentifierSpec
		var category string
		if err := rows.Scan(&category, &spec.Type); err != nil {
			return nil, false, err
		}
		spec.Category = aa.IdentifierCategory(category)
		details.Identifiers = append(details.Identifiers, spec)
	}
	return &details, true, rows.Err()
}

// --- Accounts ---

// DiscoverAccounts returns the accounts a FIP holds for a mobile number.
func (s *Store) DiscoverAccounts(fipID, mobile string) ([]aa.DiscoveredAccount, error) {
	rows, err := s.conn.Query(
		"SELECT account_reference_number, masked_account_number, account_type, fi_type FROM accounts WHERE fip_id = ? AND mobile = ? ORDER BY account_reference_number",
		fipID, mobile,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []aa.DiscoveredAccount
	for rows.Next() {
		var a aa.DiscoveredAccount
		if err := rows.Scan(&a.AccountReferenceNumber, &a.MaskedAccountNumber, &a.AccountType, &a.FIType); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// CreateLink records a pending link request over the given accounts.
func (s *Store) CreateLink(reference, fipID string, accountRefs []string) error {
	if _, err := s.conn.Exec(
		"INSERT INTO links (reference, fip_id, created_at) VALUES (?, ?, ?)",
		reference, fipID, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	for _, ref := range accountRefs {
		if _, err := s.conn.Exec(
			"INSERT INTO link_accounts (link_reference, account_reference_number) VALUES (?, ?)",
			reference, ref,
		); err != nil {
			return err
		}
	}
	return nil
}

// ConfirmLink marks the link's accounts as linked. Returns the number of
// accounts linked, or false when the reference is unknown.
func (s *Store) ConfirmLink(reference string) (int, bool, error) {
	var one int
	err := s.conn.QueryRow("SELECT 1 FROM links WHERE reference = ?", reference).Scan(&one)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	if _, err := s.conn.Exec(
		"UPDATE links SET confirmed = 1 WHERE reference = ?", reference,
	); err != nil {
		return 0, false, err
	}

	res, err := s.conn.Exec(`
		UPDATE accounts SET linked = 1, link_reference_number = ?
		WHERE account_reference_number IN (
			SELECT account_reference_number FROM link_accounts WHERE link_reference = ?
		)`, reference, reference)
	if err != nil {
		return 0, false, err
	}
	n, _ := res.RowsAffected()
	return int(n), true, nil
}

// LinkedAccounts lists every linked account with its provider.
func (s *Store) LinkedAccounts() ([]aa.LinkedAccount, error) {
	rows, err := s.conn.Query(`
		SELECT a.account_reference_number, a.masked_account_number, a.fip_id, f.name, a.account_type, a.fi_type, a.link_reference_number
		FROM accounts a
		JOIN fips f ON f.id = a.fip_id
		WHERE a.linked = 1
		ORDER BY a.account_reference_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []aa.LinkedAccount
	for rows.Next() {
		var a aa.LinkedAccount
		if err := rows.Scan(&a.AccountReferenceNumber, &a.MaskedAccountNumber, &a.FIPID, &a.FIPName, &a.AccountType, &a.FIType, &a.LinkReferenceNumber); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// --- Consents ---

// GetOrCreateConsent returns the consent for the handle, creating a PENDING
// record with default terms on first fetch.
func (s *Store) GetOrCreateConsent(handle string) (*aa.ConsentDetails, string, error) {
	details, status, found, err := s.getConsent(handle)
	if err != nil {
		return nil, "", err
	}
	if found {
		return details, status, nil
	}

	now := time.Now().UTC()
	dataFrom := now.AddDate(-1, 0, 0)
	expiresAt := now.AddDate(0, 6, 0)
	if _, err := s.conn.Exec(`
		INSERT INTO consents (handle, purpose, data_from, data_to, expires_at, frequency, fetch_type, mode, data_life, fi_types, requester)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		handle,
		"Personal finance management",
		dataFrom.Format(time.RFC3339),
		now.Format(time.RFC3339),
		expiresAt.Format(time.RFC3339),
		"4 times per day",
		"PERIODIC",
		"STORE",
		"1 year",
		"DEPOSIT",
		"moneyAI",
	); err != nil {
		return nil, "", err
	}

	details, status, _, err = s.getConsent(handle)
	return details, status, err
}

func (s *Store) getConsent(handle string) (*aa.ConsentDetails, string, bool, error) {
	var d aa.ConsentDetails
	var dataFrom, dataTo, expiresAt, fiTypes, status string
	err := s.conn.QueryRow(`
		SELECT handle, purpose, data_from, data_to, expires_at, frequency, fetch_type, mode, data_life, fi_types, requester, status
		FROM consents WHERE handle = ?`, handle,
	).Scan(&d.ConsentHandle, &d.Purpose, &dataFrom, &dataTo, &expiresAt, &d.Frequency, &d.FetchType, &d.Mode, &d.DataLife, &fiTypes, &d.Requester, &status)
	if err == sql.ErrNoRows {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}

	if d.DataFrom, err = time.Parse(time.RFC3339, dataFrom); err != nil {
		return nil, "", false, fmt.Errorf("consent data_from: %w", err)
	}
	if d.DataTo, err = time.Parse(time.RFC3339, dataTo); err != nil {
		return nil, "", false, fmt.Errorf("consent data_to: %w", err)
	}
	if d.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return nil, "", false, fmt.Errorf("consent expires_at: %w", err)
	}
	if fiTypes != "" {
		d.FITypes = strings.Split(fiTypes, ",")
	}
	return &d, status, true, nil
}

// DecideConsent moves a PENDING consent to ACTIVE or REJECTED. Returns
// false when the consent is unknown or already decided.
func (s *Store) DecideConsent(handle string, approve bool, consentID string) (bool, error) {
	status := "REJECTED"
	if approve {
		status = "ACTIVE"
	}
	res, err := s.conn.Exec(
		"UPDATE consents SET status = ?, consent_id = ? WHERE handle = ? AND status = 'PENDING'",
		status, consentID, handle,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ConsentStatus returns the lifecycle status for a handle, or "" if unknown.
func (s *Store) ConsentStatus(handle string) (string, error) {
	var status string
	err := s.conn.QueryRow("SELECT status FROM consents WHERE handle = ?", handle).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return status, nil
}
