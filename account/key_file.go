package account

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const KeyFileName = "keys.json"

var ErrKeyFileExists = errors.New("key file already exists")

type keyFile struct {
	Mnemonic   string      `json:"mnemonic"`
	MasterKey  string      `json:"masterKey"`
	AccountKey *AccountKey `json:"accountKey"`
}

// SaveKeys writes keys into file, existing file is only replaced when overwrite is true.
func SaveKeys(file string, keys *Keys, overwrite bool) error {
	if _, err := os.Stat(file); err == nil && !overwrite {
		return fmt.Errorf("%w: %s", ErrKeyFileExists, file)
	}
	b, err := json.MarshalIndent(&keyFile{
		Mnemonic:   keys.Mnemonic,
		MasterKey:  keys.MasterKey.String(),
		AccountKey: keys.AccountKey,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding keys: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	return os.WriteFile(file, b, 0600) // -rw-------
}

// LoadKeys reads keys from file and checks that the account key matches the mnemonic.
func LoadKeys(file string) (*Keys, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	kf := &keyFile{}
	if err := json.Unmarshal(b, kf); err != nil {
		return nil, fmt.Errorf("decoding key file %s: %w", file, err)
	}
	keys, err := NewKeys(kf.Mnemonic)
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", file, err)
	}
	if kf.AccountKey != nil && kf.AccountKey.Address != keys.AccountKey.Address {
		return nil, fmt.Errorf("key file %s: account address %s does not match mnemonic", file, kf.AccountKey.Address)
	}
	return keys, nil
}
