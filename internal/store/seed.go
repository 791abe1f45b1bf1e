package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReadSeedFile reads a JSON document of the form
// {"<namespace>": {"<key>": <record>, ...}, ...} for MemoryStore.Load.
func ReadSeedFile(path string) (map[string]Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed map[string]Snapshot
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	for namespace, records := range seed {
		if namespace == "" {
			return nil, fmt.Errorf("parse seed file %s: %w", path, ErrInvalidNamespace)
		}
		for key := range records {
			if key == "" {
				return nil, fmt.Errorf("parse seed file %s: namespace %s: %w", path, namespace, ErrInvalidKey)
			}
		}
	}

	return seed, nil
}
