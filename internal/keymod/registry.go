package keymod

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Module is one key-management backend. DeriveKey must be deterministic for
// a given alias and salt.
type Module interface {
	Name() string
	DeriveKey(alias string, salt []byte) ([]byte, error)
}

// Registry holds the registered key modules and owns the record store for
// the daemon's lifetime. It is initialized before the dispatch loop starts
// and torn down exactly once on every exit path.
type Registry struct {
	modules       map[string]Module
	defaultModule string
	store         *Store
	log           zerolog.Logger

	teardownOnce sync.Once
	teardownErr  error
}

// Init opens the record store and registers the built-in modules. A failure
// here is fatal to daemon startup.
func Init(storePath string, passphrase []byte, log zerolog.Logger) (*Registry, error) {
	store, err := OpenStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("open key record store: %w", err)
	}

	reg := NewRegistry(store, log)
	mod, err := NewPassphraseModule(passphrase)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := reg.Register(mod); err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Debug().Int("modules", len(reg.modules)).Str("store", storePath).Msg("key module registry initialized")
	return reg, nil
}

func NewRegistry(store *Store, log zerolog.Logger) *Registry {
	return &Registry{
		modules: make(map[string]Module),
		store:   store,
		log:     log,
	}
}

// Register adds a module; the first registered module becomes the default
// for newly provisioned aliases.
func (r *Registry) Register(m Module) error {
	name := m.Name()
	if _, ok := r.modules[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateModule, name)
	}
	r.modules[name] = m
	if r.defaultModule == "" {
		r.defaultModule = name
	}
	return nil
}

func (r *Registry) Module(name string) (Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	return m, nil
}

func (r *Registry) DefaultModule() string {
	return r.defaultModule
}

func (r *Registry) Store() *Store {
	return r.store
}

// Teardown releases the registry's resources. Safe to call more than once;
// only the first call does the work.
func (r *Registry) Teardown() error {
	r.teardownOnce.Do(func() {
		r.teardownErr = r.store.Close()
		r.log.Debug().Msg("key module registry torn down")
	})
	return r.teardownErr
}
