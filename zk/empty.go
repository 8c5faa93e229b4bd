package zk

type emptyProofVerifier struct {
	Verifier
}

// AllowEmptyProof wraps v so that a call with both an empty proof and an
// empty public input is admitted without verification. Any other call is
// delegated to v. Only meant for development networks.
func AllowEmptyProof(v Verifier) Verifier {
	return &emptyProofVerifier{Verifier: v}
}

func (e *emptyProofVerifier) Verify(vk, proof, publicInput []byte) error {
	if len(proof) == 0 && len(publicInput) == 0 {
		return nil
	}
	return e.Verifier.Verify(vk, proof, publicInput)
}

// AllowsEmptyProof reports whether v admits empty proofs.
func AllowsEmptyProof(v Verifier) bool {
	_, ok := v.(*emptyProofVerifier)
	return ok
}

func (e *emptyProofVerifier) ValidateVerifyingKey(vk []byte) error {
	if kv, ok := e.Verifier.(KeyValidator); ok {
		return kv.ValidateVerifyingKey(vk)
	}
	return nil
}
