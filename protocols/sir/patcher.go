package sir

import (
	"fmt"
	"math/big"
	"sort"
)

// deepCopyVault returns a vault that shares no memory with v.
func deepCopyVault(v Vault) Vault {
	newVault := v
	if v.Reserve != nil {
		newVault.Reserve = new(big.Int).Set(v.Reserve)
	}
	return newVault
}

// Patcher builds the next vault system snapshot by applying diff to prevState.
// Deletions are applied first, then updates, then additions. Vaults entering the
// snapshot must carry a valid state, and no two vaults of the result may share
// their parameters. The result is ordered by vault id.
func Patcher(prevState []Vault, diff VaultSystemDiff) ([]Vault, error) {
	newStateMap := make(map[uint64]Vault, len(prevState))
	for _, vault := range prevState {
		newStateMap[vault.VaultID] = deepCopyVault(vault)
	}

	for _, vaultIDToDelete := range diff.Deletions {
		delete(newStateMap, vaultIDToDelete)
	}

	for _, updatedVault := range diff.Updates {
		if err := updatedVault.Validate(); err != nil {
			return nil, fmt.Errorf("update of vault %d: %w", updatedVault.VaultID, err)
		}
		newStateMap[updatedVault.VaultID] = deepCopyVault(updatedVault)
	}

	for _, addedVault := range diff.Additions {
		if err := addedVault.Validate(); err != nil {
			return nil, fmt.Errorf("addition of vault %d: %w", addedVault.VaultID, err)
		}
		newStateMap[addedVault.VaultID] = deepCopyVault(addedVault)
	}

	finalState := make([]Vault, 0, len(newStateMap))
	for _, vault := range newStateMap {
		finalState = append(finalState, vault)
	}
	sort.Slice(finalState, func(i, j int) bool { return finalState[i].VaultID < finalState[j].VaultID })

	if err := CheckUnique(finalState); err != nil {
		return nil, err
	}
	return finalState, nil
}
