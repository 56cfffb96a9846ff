package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// FileKV is a JSON-file-backed KV, the installation-scoped equivalent of a
// browser's localStorage. Values must be valid JSON.
type FileKV struct {
	path string

	mu   sync.RWMutex
	data map[string]json.RawMessage
}

func NewFileKV(path string) (*FileKV, error) {
	kv := &FileKV{
		path: path,
		data: map[string]json.RawMessage{},
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := kv.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return kv, nil
}

func (kv *FileKV) loadFromFile() error {
	raw, err := os.ReadFile(kv.path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &kv.data)
}

func (kv *FileKV) saveToFile() error {
	raw, err := json.MarshalIndent(kv.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(kv.path, raw, 0644)
}

func (kv *FileKV) Get(key string) ([]byte, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()

	value, ok := kv.data[key]
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (kv *FileKV) Set(key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	kv.data[key] = json.RawMessage(value)
	return kv.saveToFile()
}
