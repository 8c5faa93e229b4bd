// Package ethereum recovers and produces the EIP-191 signatures used to
// authenticate callers of the election program.
package ethereum

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/davinci-dao/types"
)

const (
	// SignatureLength is the size of an ECDSA signature with recovery byte.
	SignatureLength = ethcrypto.SignatureLength
	// SigningPrefix is the prefix added when hashing Ethereum messages.
	SigningPrefix = "\u0019Ethereum Signed Message:\n"
)

// ECDSASignature is a secp256k1 signature split in its R and S components
// plus the recovery id (0-3).
type ECDSASignature struct {
	R        *big.Int `json:"r"`
	S        *big.Int `json:"s"`
	recovery byte
}

// BytesToSignature decodes a 65 byte r||s||v signature. The recovery byte
// may use either the raw (0-3) or the Ethereum (27-30) convention.
func BytesToSignature(signature []byte) (*ECDSASignature, error) {
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("invalid signature length %d, expected %d", len(signature), SignatureLength)
	}
	sig := new(ECDSASignature).SetBytes(signature)
	if sig == nil {
		return nil, fmt.Errorf("invalid recovery byte %d", signature[64])
	}
	return sig, nil
}

// HexToSignature decodes a hex encoded signature, with or without prefix.
func HexToSignature(hexSignature string) (*ECDSASignature, error) {
	b, err := types.HexStringToHexBytes(hexSignature)
	if err != nil {
		return nil, err
	}
	return BytesToSignature(b)
}

// Valid reports whether both R and S are set.
func (sig *ECDSASignature) Valid() bool {
	return sig.R != nil && sig.S != nil
}

// Bytes returns r||s||v with R and S left padded to 32 bytes and v in the
// raw 0-3 form expected by ethcrypto.SigToPub.
func (sig *ECDSASignature) Bytes() []byte {
	out := make([]byte, SignatureLength)
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:64])
	out[64] = sig.recovery
	return out
}

// SetBytes sets the signature from a 65 byte slice. It returns nil if the
// slice is too short or the recovery byte is out of range.
func (sig *ECDSASignature) SetBytes(signature []byte) *ECDSASignature {
	if len(signature) < SignatureLength {
		return nil
	}
	v := signature[64]
	if v >= 27 {
		v -= 27
	}
	if v > 3 {
		return nil
	}
	sig.R = new(big.Int).SetBytes(signature[:32])
	sig.S = new(big.Int).SetBytes(signature[32:64])
	sig.recovery = v
	return sig
}

// Verify reports whether sig is a signature of msg by expectedAddress.
func (sig *ECDSASignature) Verify(msg []byte, expectedAddress common.Address) bool {
	addr, err := AddrFromSignature(msg, sig)
	if err != nil {
		return false
	}
	return addr == expectedAddress
}

func (sig *ECDSASignature) String() string {
	return fmt.Sprintf("R: %s, S: %s, Recovery: %d", sig.R, sig.S, sig.recovery)
}

// AddrFromSignature recovers the address that signed msg.
func AddrFromSignature(msg []byte, sig *ECDSASignature) (common.Address, error) {
	if sig == nil || !sig.Valid() {
		return common.Address{}, fmt.Errorf("signature is nil")
	}
	pubKey, err := ethcrypto.SigToPub(HashMessage(msg), sig.Bytes())
	if err != nil {
		return common.Address{}, fmt.Errorf("sigToPub %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// RecoverSigner decodes a raw signature and recovers the address that signed
// msg with it.
func RecoverSigner(msg, signature []byte) (common.Address, error) {
	sig, err := BytesToSignature(signature)
	if err != nil {
		return common.Address{}, err
	}
	return AddrFromSignature(msg, sig)
}
