package client

import "sync"

// Credentials identify a signed-in customer.
type Credentials struct {
	Token      string
	CustomerID string
}

// CredentialStore holds the bearer credential explicitly instead of reading
// ambient session state.
type CredentialStore interface {
	Load() (Credentials, bool)
	Save(Credentials) error
	Clear() error
}

// MemoryCredentials keeps credentials for the life of the process.
type MemoryCredentials struct {
	mu    sync.RWMutex
	creds *Credentials
}

func (m *MemoryCredentials) Load() (Credentials, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.creds == nil || m.creds.Token == "" {
		return Credentials{}, false
	}
	return *m.creds, true
}

func (m *MemoryCredentials) Save(c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = &c
	return nil
}

func (m *MemoryCredentials) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	return nil
}
