// Package user manages registered accounts and their session state. Result
// codes follow the wire protocol: 100 is success, the rest are per-operation
// failure causes.
package user

import (
	"encoding/json"
	"os"
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const CodeOK = 100

type account struct {
	Username string `json:"username"`
	Hash     string `json:"password"`

	logged bool
}

// Manager holds all accounts. Credentials are stored as bcrypt hashes;
// logged-in state is in-memory only, every account starts logged out after
// a restart.
type Manager struct {
	mu    sync.Mutex
	users map[string]*account
}

func NewManager() *Manager {
	return &Manager{users: map[string]*account{}}
}

// Register creates an account.
// 100 OK, 101 invalid password, 102 username not available,
// 103 invalid username.
func (m *Manager) Register(username, password string) int {
	if !valid(password, 8, 20) {
		return 101
	}
	if !valid(username, 3, 12) {
		return 103
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 103
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; exists {
		return 102
	}
	m.users[username] = &account{Username: username, Hash: string(hash)}
	return CodeOK
}

// UpdateCredentials replaces the password and logs the account out.
// 100 OK, 101 invalid new password, 102 old password mismatch,
// 103 new password equal to old, 105 unknown user.
func (m *Manager) UpdateCredentials(username, oldPwd, newPwd string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return 105
	}
	if !valid(newPwd, 8, 20) {
		return 101
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(oldPwd)) != nil {
		return 102
	}
	if newPwd == oldPwd {
		return 103
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return 105
	}
	u.Hash = string(hash)
	u.logged = false
	return CodeOK
}

// Login validates credentials and marks the account logged in.
// 100 OK, 101 username/password mismatch, 102 already logged in,
// 103 invalid password.
func (m *Manager) Login(username, password string) int {
	if !valid(password, 8, 20) {
		return 103
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return 101
	}
	if u.logged {
		return 102
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return 101
	}
	u.logged = true
	return CodeOK
}

// Logout clears the logged-in state.
// 100 OK, 101 unknown user or not logged in.
func (m *Manager) Logout(username string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok || !u.logged {
		return 101
	}
	u.logged = false
	return CodeOK
}

func (m *Manager) IsLoggedIn(username string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	return ok && u.logged
}

// Save writes all accounts to path as JSON. Session state is not persisted.
func (m *Manager) Save(path string) error {
	m.mu.Lock()
	accounts := make([]account, 0, len(m.users))
	for _, u := range m.users {
		accounts = append(accounts, account{Username: u.Username, Hash: u.Hash})
	}
	m.mu.Unlock()

	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Load replaces the account set from path. A missing file is a fresh start.
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var accounts []account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[string]*account, len(accounts))
	for i := range accounts {
		a := accounts[i]
		m.users[a.Username] = &a
	}
	return nil
}

// valid enforces length bounds and alphanumeric-only content.
func valid(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
