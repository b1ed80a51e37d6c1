// Copyright (c) 2024 The phnd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ownerkey bootstraps the node owner's identity: on first run it
// generates a keypair and pins it to disk, and on every subsequent run
// it loads the same one back, so the genesis recipient never shifts
// under the node's feet.
package ownerkey

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prasangapokharel/phnd/internal/pcrypto"
)

// Record is the on-disk shape of the owner keypair file.
type Record struct {
	PrivateKeyHex string `json:"private_key"`
	PublicKeyHex  string `json:"public_key"`
	Address       string `json:"address"`
}

// LoadOrGenerate reads path if it exists, or generates a new keypair and
// writes it there (creating parent directories as needed) if it does
// not.
func LoadOrGenerate(path string) (*pcrypto.KeyPair, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var rec Record
		if uErr := json.Unmarshal(data, &rec); uErr != nil {
			return nil, fmt.Errorf("ownerkey: parse %s: %w", path, uErr)
		}
		return pcrypto.KeyPairFromPrivateHex(rec.PrivateKeyHex)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("ownerkey: read %s: %w", path, err)
	}

	kp, genErr := pcrypto.GenerateKeyPair()
	if genErr != nil {
		return nil, fmt.Errorf("ownerkey: generate: %w", genErr)
	}
	if dir := filepath.Dir(path); dir != "." {
		if mkErr := os.MkdirAll(dir, 0700); mkErr != nil {
			return nil, fmt.Errorf("ownerkey: create dir for %s: %w", path, mkErr)
		}
	}
	rec := Record{PrivateKeyHex: kp.PrivateKeyHex(), PublicKeyHex: kp.PublicHex, Address: kp.Address}
	out, mErr := json.MarshalIndent(rec, "", "  ")
	if mErr != nil {
		return nil, fmt.Errorf("ownerkey: encode: %w", mErr)
	}
	if wErr := os.WriteFile(path, out, 0600); wErr != nil {
		return nil, fmt.Errorf("ownerkey: write %s: %w", path, wErr)
	}
	return kp, nil
}
