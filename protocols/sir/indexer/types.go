package indexer

import "github.com/defistate/sir-client-go/protocols/sir"

// IndexedVaultSystem provides a read-only view of all indexed vaults.
type IndexedVaultSystem interface {
	GetByID(id uint64) (sir.Vault, bool)
	GetByParameters(params sir.VaultParameters) (sir.Vault, bool)
	All() []sir.Vault
}
