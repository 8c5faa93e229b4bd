package types

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Role tags used to derive the storage address of each account kind from an
// identity. A creator owns exactly one election and one changeable token
// account; every voter owns one reward account.
const (
	ElectionTag        = "election"
	ChangeableTokenTag = "changabletoken"
	UserTag            = "user"
)

// DeriveAddress maps a role tag and an identity to a deterministic 32 byte
// storage address: keccak256(tag || identity).
func DeriveAddress(tag string, identity common.Address) common.Hash {
	return ethcrypto.Keccak256Hash([]byte(tag), identity.Bytes())
}

// ElectionAddress returns the address of the election opened by creator.
func ElectionAddress(creator common.Address) common.Hash {
	return DeriveAddress(ElectionTag, creator)
}

// ChangeableTokenAddress returns the address of the token account bound to
// the elections of creator. It does not depend on the election itself, so it
// is shared by every election the creator opens over time.
func ChangeableTokenAddress(creator common.Address) common.Hash {
	return DeriveAddress(ChangeableTokenTag, creator)
}

// UserAddress returns the address of the reward account of voter.
func UserAddress(voter common.Address) common.Hash {
	return DeriveAddress(UserTag, voter)
}
