package pool

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Account is one generation-service login, loaded from the operator's
// accounts CSV. Rotation bookkeeping lives in the embedded State; the
// remaining fields are credentials and browser-profile metadata.
type Account struct {
	State

	Email       string
	Password    string
	ProfileDir  string
	CookiesFile string
}

// PoolState implements Resource.
func (a *Account) PoolState() *State {
	return &a.State
}

var accountRequiredColumns = []string{"name", "email", "password"}

// ErrMissingColumns is returned when the accounts CSV header lacks a
// required column.
var ErrMissingColumns = errors.New("accounts file missing required columns")

// LoadAccounts reads accounts from a CSV file with the header
// name,email,password,profile_dir,cookies_file,enabled. Loading is
// all-or-nothing: a missing required column or a row without an identifier
// or credential fails the whole load.
func LoadAccounts(path string) ([]*Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	return ParseAccounts(f)
}

// ParseAccounts parses accounts CSV from r. See LoadAccounts.
func ParseAccounts(r io.Reader) ([]*Account, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read accounts header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	var missing []string
	for _, name := range accountRequiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var accounts []*Account
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read accounts row %d: %w", line, err)
		}

		a := &Account{
			State: State{
				ID:      field(row, "name"),
				Enabled: parseEnabled(field(row, "enabled")),
			},
			Email:       field(row, "email"),
			Password:    field(row, "password"),
			ProfileDir:  field(row, "profile_dir"),
			CookiesFile: field(row, "cookies_file"),
		}
		if a.ID == "" || a.Email == "" {
			return nil, fmt.Errorf("accounts row %d: %w", line, ErrMissingIdentity)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// parseEnabled interprets the CSV enabled flag. An empty value means
// enabled, matching operator expectations for hand-edited files.
func parseEnabled(v string) bool {
	switch strings.ToLower(v) {
	case "", "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}
