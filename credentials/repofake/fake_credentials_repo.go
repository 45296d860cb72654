package credentialsrepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-marketplace-client/credentials"
)

var _ credentials.Repo = (*FakeCredentialsRepo)(nil)

type FakeCredentialsRepo struct {
	entries map[string]string
	lock    sync.RWMutex

	// SetErr and DeleteErr, when set, are returned instead of writing.
	SetErr    error
	DeleteErr error
	writes    int
}

func NewFakeCredentialsRepo() *FakeCredentialsRepo {
	return &FakeCredentialsRepo{
		entries: make(map[string]string),
	}
}

func (r *FakeCredentialsRepo) GetMany(_ context.Context, keys ...string) (map[string]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := r.entries[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (r *FakeCredentialsRepo) SetMany(_ context.Context, entries map[string]string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.SetErr != nil {
		return r.SetErr
	}
	for k, v := range entries {
		if v == "" {
			delete(r.entries, k)
			continue
		}
		r.entries[k] = v
	}
	r.writes++
	return nil
}

func (r *FakeCredentialsRepo) Delete(_ context.Context, keys ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	for _, k := range keys {
		delete(r.entries, k)
	}
	r.writes++
	return nil
}

// Put seeds a raw entry, bypassing the all-or-nothing rule (used to plant partial state).
func (r *FakeCredentialsRepo) Put(key, value string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.entries[key] = value
}

// Len returns how many entries are stored.
func (r *FakeCredentialsRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.entries)
}

// Writes returns how many SetMany/Delete calls succeeded.
func (r *FakeCredentialsRepo) Writes() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.writes
}
