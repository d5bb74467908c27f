package sir

import "math/big"

// VaultSystemDiff describes how a set of vaults changed between two snapshots.
type VaultSystemDiff struct {
	Additions []Vault  `json:"additions,omitempty"`
	Updates   []Vault  `json:"updates,omitempty"`
	Deletions []uint64 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d VaultSystemDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

func reserveEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// vaultChanged reports whether anything that affects the reserve split differs.
func vaultChanged(old, new Vault) bool {
	if old.VaultParameters != new.VaultParameters {
		return true
	}
	if old.TickPriceSatX42 != new.TickPriceSatX42 {
		return true
	}
	return !reserveEqual(old.Reserve, new.Reserve)
}

// Differ calculates the difference between two snapshots of the vault system,
// keyed by vault id.
func Differ(old, new []Vault) VaultSystemDiff {
	oldVaultsMap := make(map[uint64]Vault, len(old))
	for _, vault := range old {
		oldVaultsMap[vault.VaultID] = vault
	}

	newVaultsMap := make(map[uint64]Vault, len(new))
	for _, vault := range new {
		newVaultsMap[vault.VaultID] = vault
	}

	var additions []Vault
	var updates []Vault
	var deletions []uint64

	for newID, newVault := range newVaultsMap {
		oldVault, exists := oldVaultsMap[newID]
		if !exists {
			additions = append(additions, newVault)
			continue
		}
		if vaultChanged(oldVault, newVault) {
			updates = append(updates, newVault)
		}
	}

	for oldID := range oldVaultsMap {
		if _, exists := newVaultsMap[oldID]; !exists {
			deletions = append(deletions, oldID)
		}
	}

	return VaultSystemDiff{
		Additions: additions,
		Updates:   updates,
		Deletions: deletions,
	}
}
