package device

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"github.com/openfms/pendant-core/modem"
)

// Store keys for the durable provisioning namespace.
const (
	KeyProvisioned    = "provisioned"
	KeyOwnerUID       = "ownerUid"
	KeyAPN            = "accessPointName"
	KeyLogVerbosity   = "logVerbosity"
	KeyLastHTTPStatus = "lastHttpStatus"
)

var ErrStoreUnavailable = errors.New("device store unavailable")

// Store is the durable key-value capability surviving power cycles. Factory
// reset clears the whole namespace.
type Store interface {
	GetBool(key string) bool
	PutBool(key string, value bool) error
	GetString(key string) string
	PutString(key, value string) error
	GetInt(key string) int
	PutInt(key string, value int) error
	Clear() error
}

// MemStore is the in-memory implementation used by tests and the simulator.
type MemStore struct {
	mu     sync.Mutex
	values map[string]any
}

var _ Store = &MemStore{}

func NewMemStore() *MemStore {
	return &MemStore{values: map[string]any{}}
}

func (ms *MemStore) GetBool(key string) bool {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, _ := ms.values[key].(bool)
	return value
}

func (ms *MemStore) PutBool(key string, value bool) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[key] = value
	return nil
}

func (ms *MemStore) GetString(key string) string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, _ := ms.values[key].(string)
	return value
}

func (ms *MemStore) PutString(key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[key] = value
	return nil
}

func (ms *MemStore) GetInt(key string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	value, _ := ms.values[key].(int)
	return value
}

func (ms *MemStore) PutInt(key string, value int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values[key] = value
	return nil
}

func (ms *MemStore) Clear() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.values = map[string]any{}
	return nil
}

// FileStore persists the namespace as a JSON document, standing in for the
// NVS partition of the embedded target.
type FileStore struct {
	mu     sync.Mutex
	path   string
	values map[string]json.RawMessage
}

var _ Store = &FileStore{}

func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, values: map[string]json.RawMessage{}}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fs, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(raw, &fs.values); err != nil {
		// A corrupt store is recoverable: start over empty.
		fs.values = map[string]json.RawMessage{}
	}
	return fs, nil
}

func (fs *FileStore) flushLocked() error {
	raw, err := json.Marshal(fs.values)
	if err != nil {
		return err
	}
	return os.WriteFile(fs.path, raw, 0o600)
}

func (fs *FileStore) getLocked(key string, out any) {
	raw, ok := fs.values[key]
	if !ok {
		return
	}
	_ = json.Unmarshal(raw, out)
}

func (fs *FileStore) putLocked(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fs.values[key] = raw
	return fs.flushLocked()
}

func (fs *FileStore) GetBool(key string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var value bool
	fs.getLocked(key, &value)
	return value
}

func (fs *FileStore) PutBool(key string, value bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.putLocked(key, value)
}

func (fs *FileStore) GetString(key string) string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var value string
	fs.getLocked(key, &value)
	return value
}

func (fs *FileStore) PutString(key, value string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.putLocked(key, value)
}

func (fs *FileStore) GetInt(key string) int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var value int
	fs.getLocked(key, &value)
	return value
}

func (fs *FileStore) PutInt(key string, value int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.putLocked(key, value)
}

func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.values = map[string]json.RawMessage{}
	return fs.flushLocked()
}

type statusRecorder struct {
	store Store
}

// NewStatusRecorder adapts a Store into the driver's diagnostic status sink.
func NewStatusRecorder(store Store) modem.StatusRecorder {
	return &statusRecorder{store: store}
}

func (sr *statusRecorder) RecordHTTPStatus(status int) {
	_ = sr.store.PutInt(KeyLastHTTPStatus, status)
}
