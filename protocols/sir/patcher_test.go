package sir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to find a vault by ID in a slice for testing assertions.
func findVaultByID(vaults []Vault, id uint64) *Vault {
	for i := range vaults {
		if vaults[i].VaultID == id {
			return &vaults[i]
		}
	}
	return nil
}

func TestPatcher(t *testing.T) {
	vault1Old := newTestVault(1, 0, 1000, 5000)
	vault2Old := newTestVault(2, 1, 2000, 6000)
	vault3Old := newTestVault(3, -1, 3000, 7000)

	initialState := []Vault{vault1Old, vault2Old, vault3Old}

	t.Run("should handle only additions", func(t *testing.T) {
		diff := VaultSystemDiff{Additions: []Vault{newTestVault(4, 2, 4000, 8000)}}

		newState, err := Patcher(initialState, diff)
		require.NoError(t, err)

		assert.Len(t, newState, 4)
		newVault := findVaultByID(newState, 4)
		require.NotNil(t, newVault)
		assert.Equal(t, int64(4000), newVault.Reserve.Int64())
	})

	t.Run("should handle only deletions", func(t *testing.T) {
		newState, err := Patcher(initialState, VaultSystemDiff{Deletions: []uint64{2}})
		require.NoError(t, err)

		assert.Len(t, newState, 2)
		assert.Nil(t, findVaultByID(newState, 2))
	})

	t.Run("should handle only updates", func(t *testing.T) {
		diff := VaultSystemDiff{Updates: []Vault{newTestVault(1, 0, 1001, 5005)}}

		newState, err := Patcher(initialState, diff)
		require.NoError(t, err)

		assert.Len(t, newState, 3)
		updatedVault := findVaultByID(newState, 1)
		require.NotNil(t, updatedVault)
		assert.Equal(t, int64(1001), updatedVault.Reserve.Int64())
		assert.Equal(t, int64(5005), updatedVault.TickPriceSatX42)
	})

	t.Run("should verify deep copy on update", func(t *testing.T) {
		localInitialState := []Vault{newTestVault(1, 0, 1000, 5000)}
		vault1Updated := newTestVault(1, 0, 1001, 5005)

		newState, err := Patcher(localInitialState, VaultSystemDiff{Updates: []Vault{vault1Updated}})
		require.NoError(t, err)
		require.Len(t, newState, 1)

		vault1Updated.Reserve.SetInt64(9999)
		localInitialState[0].Reserve.SetInt64(9999)

		updatedVault := findVaultByID(newState, 1)
		require.NotNil(t, updatedVault)
		assert.Equal(t, int64(1001), updatedVault.Reserve.Int64(), "New state should be isolated from the diff")
	})

	t.Run("should reject invalid vaults", func(t *testing.T) {
		_, err := Patcher(initialState, VaultSystemDiff{Additions: []Vault{newTestVault(5, 7, 1000, 0)}})
		assert.ErrorIs(t, err, ErrInvalidLeverageTier)

		_, err = Patcher(initialState, VaultSystemDiff{Updates: []Vault{newTestVault(1, 0, -5, 0)}})
		assert.ErrorIs(t, err, ErrInvalidReserve)
	})

	t.Run("should handle a mix of operations", func(t *testing.T) {
		diff := VaultSystemDiff{
			Additions: []Vault{newTestVault(4, 2, 4000, 8000)},
			Updates:   []Vault{newTestVault(2, 1, 2002, 6006)},
			Deletions: []uint64{3},
		}

		newState, err := Patcher(initialState, diff)
		require.NoError(t, err)

		assert.Len(t, newState, 3)
		assert.NotNil(t, findVaultByID(newState, 4))
		updatedVault := findVaultByID(newState, 2)
		require.NotNil(t, updatedVault)
		assert.Equal(t, int64(2002), updatedVault.Reserve.Int64())
		assert.Nil(t, findVaultByID(newState, 3))
		assert.NotNil(t, findVaultByID(newState, 1))
	})

	t.Run("should round trip through Differ", func(t *testing.T) {
		next := []Vault{newTestVault(1, 0, 1500, 5000), vault2Old, newTestVault(9, -2, 10, 1)}

		newState, err := Patcher(initialState, Differ(initialState, next))
		require.NoError(t, err)
		assert.ElementsMatch(t, next, newState)
	})

	t.Run("should reject vaults sharing parameters", func(t *testing.T) {
		// Same debt, collateral and tier as vault 2.
		_, err := Patcher(initialState, VaultSystemDiff{Additions: []Vault{newTestVault(4, 1, 5000, 6000)}})
		assert.ErrorIs(t, err, ErrDuplicateVault)

		// Moving vault 3 onto vault 1's tier collides as well.
		_, err = Patcher(initialState, VaultSystemDiff{Updates: []Vault{newTestVault(3, 0, 3000, 7000)}})
		assert.ErrorIs(t, err, ErrDuplicateVault)

		// Replacing a deleted vault with the same parameters is fine.
		newState, err := Patcher(initialState, VaultSystemDiff{
			Deletions: []uint64{2},
			Additions: []Vault{newTestVault(4, 1, 5000, 6000)},
		})
		require.NoError(t, err)
		assert.Len(t, newState, 3)
	})

	t.Run("should order the result by vault id", func(t *testing.T) {
		newState, err := Patcher(initialState, VaultSystemDiff{Additions: []Vault{newTestVault(0, 2, 1, 1)}})
		require.NoError(t, err)
		for i := 1; i < len(newState); i++ {
			assert.Less(t, newState[i-1].VaultID, newState[i].VaultID)
		}
	})

	t.Run("should handle an empty diff", func(t *testing.T) {
		newState, err := Patcher(initialState, VaultSystemDiff{})
		require.NoError(t, err)
		assert.ElementsMatch(t, initialState, newState)
	})
}
