// Package pda derives the deterministic, program-controlled addresses of every
// ledger record and vault, and authorizes movements out of them.
package pda

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Namespace is the fixed seed prefix of a record family.
type Namespace string

const (
	NamespaceUserLedger       Namespace = "config"
	NamespaceVault            Namespace = "vault"
	NamespaceTreasury         Namespace = "treasury"
	NamespaceTreasuryVault    Namespace = "treasury_vault"
	NamespaceAllocationLedger Namespace = "allocation_config"
	NamespaceTokenVault       Namespace = "token_vault"
	NamespaceSwapConfig       Namespace = "swap_config"
)

// ErrAddressMismatch is returned when a signer does not reproduce the address it
// claims authority over.
var ErrAddressMismatch = errors.New("pda: signer does not reproduce address")

// Deriver computes addresses under a single program identity.
type Deriver struct {
	ProgramID solana.PublicKey
}

// NewDeriver creates a Deriver for programID.
func NewDeriver(programID solana.PublicKey) *Deriver {
	return &Deriver{ProgramID: programID}
}

func seeds(ns Namespace, owner *solana.PublicKey, secondary []solana.PublicKey) [][]byte {
	out := make([][]byte, 0, 2+len(secondary))
	out = append(out, []byte(ns))
	if owner != nil {
		out = append(out, owner[:])
	}
	for i := range secondary {
		out = append(out, secondary[i][:])
	}
	return out
}

// Derive returns the canonical address and bump for (ns, owner, secondary...).
// A nil owner derives a program-wide singleton.
func (d *Deriver) Derive(ns Namespace, owner *solana.PublicKey, secondary ...solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds(ns, owner, secondary), d.ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive %s: %w", ns, err)
	}
	return addr, bump, nil
}

// Reproduce recomputes an address from a stored bump.
func (d *Deriver) Reproduce(ns Namespace, owner *solana.PublicKey, bump uint8, secondary ...solana.PublicKey) (solana.PublicKey, error) {
	s := append(seeds(ns, owner, secondary), []byte{bump})
	addr, err := solana.CreateProgramAddress(s, d.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("reproduce %s: %w", ns, err)
	}
	return addr, nil
}

// Signer is the seed set presented to move funds out of a program-controlled address.
type Signer struct {
	Namespace Namespace
	Owner     *solana.PublicKey
	Secondary []solana.PublicKey
	Bump      uint8
}

// Authorize succeeds only when s reproduces exactly addr.
func (d *Deriver) Authorize(s Signer, addr solana.PublicKey) error {
	got, err := d.Reproduce(s.Namespace, s.Owner, s.Bump, s.Secondary...)
	if err != nil {
		return err
	}
	if !got.Equals(addr) {
		return ErrAddressMismatch
	}
	return nil
}

// UserLedger derives ("config", owner).
func (d *Deriver) UserLedger(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return d.Derive(NamespaceUserLedger, &owner)
}

// Vault derives ("vault", owner).
func (d *Deriver) Vault(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return d.Derive(NamespaceVault, &owner)
}

// Treasury derives ("treasury").
func (d *Deriver) Treasury() (solana.PublicKey, uint8, error) {
	return d.Derive(NamespaceTreasury, nil)
}

// TreasuryVault derives ("treasury_vault").
func (d *Deriver) TreasuryVault() (solana.PublicKey, uint8, error) {
	return d.Derive(NamespaceTreasuryVault, nil)
}

// AllocationLedger derives ("allocation_config", owner).
func (d *Deriver) AllocationLedger(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return d.Derive(NamespaceAllocationLedger, &owner)
}

// TokenVault derives ("token_vault", owner, mint).
func (d *Deriver) TokenVault(owner, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return d.Derive(NamespaceTokenVault, &owner, mint)
}

// SwapConfig derives ("swap_config", owner).
func (d *Deriver) SwapConfig(owner solana.PublicKey) (solana.PublicKey, uint8, error) {
	return d.Derive(NamespaceSwapConfig, &owner)
}

// VaultSigner is the signer of a user's vault.
func VaultSigner(owner solana.PublicKey, bump uint8) Signer {
	return Signer{Namespace: NamespaceVault, Owner: &owner, Bump: bump}
}

// TreasuryVaultSigner is the signer of the treasury vault.
func TreasuryVaultSigner(bump uint8) Signer {
	return Signer{Namespace: NamespaceTreasuryVault, Bump: bump}
}

// TokenVaultSigner is the signer of a user's token vault for mint.
func TokenVaultSigner(owner, mint solana.PublicKey, bump uint8) Signer {
	return Signer{Namespace: NamespaceTokenVault, Owner: &owner, Secondary: []solana.PublicKey{mint}, Bump: bump}
}
