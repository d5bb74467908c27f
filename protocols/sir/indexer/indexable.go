package indexer

import (
	"github.com/defistate/sir-client-go/protocols/sir"
)

// Indexer builds IndexedVaultSystem views from raw vault snapshots.
type Indexer struct{}

// New creates a new Indexer.
func New() *Indexer {
	return &Indexer{}
}

// Index creates an indexed vault system from a raw slice of vaults.
func (i *Indexer) Index(vaults []sir.Vault) IndexedVaultSystem {
	return NewIndexableVaultSystem(vaults)
}

// IndexableVaultSystem provides fast lookups of vaults by id and by parameters.
type IndexableVaultSystem struct {
	byID     map[uint64]sir.Vault
	byParams map[sir.VaultParameters]uint64
	all      []sir.Vault
}

// NewIndexableVaultSystem creates a new indexed vault system. When two vaults
// share the same parameters the later one wins the parameter lookup.
func NewIndexableVaultSystem(vaults []sir.Vault) *IndexableVaultSystem {
	byID := make(map[uint64]sir.Vault, len(vaults))
	byParams := make(map[sir.VaultParameters]uint64, len(vaults))

	for _, v := range vaults {
		byID[v.VaultID] = v
		byParams[v.VaultParameters] = v.VaultID
	}

	return &IndexableVaultSystem{
		byID:     byID,
		byParams: byParams,
		all:      vaults,
	}
}

// GetByID retrieves a vault by its id.
func (ivs *IndexableVaultSystem) GetByID(id uint64) (sir.Vault, bool) {
	v, ok := ivs.byID[id]
	return v, ok
}

// GetByParameters retrieves the vault created for (debt token, collateral token, leverage tier).
func (ivs *IndexableVaultSystem) GetByParameters(params sir.VaultParameters) (sir.Vault, bool) {
	id, ok := ivs.byParams[params]
	if !ok {
		return sir.Vault{}, false
	}
	return ivs.GetByID(id)
}

// All returns a defensive copy of the slice of all vaults.
func (ivs *IndexableVaultSystem) All() []sir.Vault {
	allCopy := make([]sir.Vault, len(ivs.all))
	copy(allCopy, ivs.all)
	return allCopy
}
