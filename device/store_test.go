package device

import (
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := OpenFileStore(path)
	assert.NilError(t, err)

	assert.NilError(t, store.PutBool(KeyProvisioned, true))
	assert.NilError(t, store.PutString(KeyOwnerUID, "owner-1234567890"))
	assert.NilError(t, store.PutString(KeyAPN, "entel.pcs"))
	assert.NilError(t, store.PutInt(KeyLastHTTPStatus, 200))

	// Values survive a reopen, like the NVS partition across power cycles.
	reopened, err := OpenFileStore(path)
	assert.NilError(t, err)
	assert.Assert(t, reopened.GetBool(KeyProvisioned))
	assert.Equal(t, reopened.GetString(KeyOwnerUID), "owner-1234567890")
	assert.Equal(t, reopened.GetString(KeyAPN), "entel.pcs")
	assert.Equal(t, reopened.GetInt(KeyLastHTTPStatus), 200)
}

func TestFileStoreClearEmptiesNamespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := OpenFileStore(path)
	assert.NilError(t, err)

	assert.NilError(t, store.PutBool(KeyProvisioned, true))
	assert.NilError(t, store.Clear())

	reopened, err := OpenFileStore(path)
	assert.NilError(t, err)
	assert.Assert(t, !reopened.GetBool(KeyProvisioned))
	assert.Equal(t, reopened.GetString(KeyOwnerUID), "")
}

func TestMemStoreDefaults(t *testing.T) {
	store := NewMemStore()
	assert.Assert(t, !store.GetBool(KeyProvisioned))
	assert.Equal(t, store.GetString(KeyOwnerUID), "")
	assert.Equal(t, store.GetInt(KeyLogVerbosity), 0)

	recorder := NewStatusRecorder(store)
	recorder.RecordHTTPStatus(404)
	assert.Equal(t, store.GetInt(KeyLastHTTPStatus), 404)
}
