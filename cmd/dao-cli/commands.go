package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/ethereum/go-ethereum/common"
	flag "github.com/spf13/pflag"
	"github.com/vocdoni/davinci-dao/api/client"
	"github.com/vocdoni/davinci-dao/circuits/eligibility"
	"github.com/vocdoni/davinci-dao/crypto/signatures/ethereum"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/types"
	"github.com/vocdoni/davinci-dao/zk"
)

const (
	defaultCurve   = "bls12_381"
	defaultNode    = "http://127.0.0.1:9090"
	requestTimeout = 30 * time.Second

	provingKeyFile   = "eligibility.pk"
	verifyingKeyFile = "eligibility.vk"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

func curveFlag(fs *flag.FlagSet) *string {
	return fs.StringP("curve", "c", defaultCurve, "curve of the circuit (bls12_381 or bn254)")
}

func parseSecret(s string) (*big.Int, error) {
	secret, ok := new(big.Int).SetString(s, 0)
	if !ok || secret.Sign() < 0 {
		return nil, fmt.Errorf("invalid secret %q", s)
	}
	return secret, nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid %s address %q", name, s)
	}
	return common.HexToAddress(s), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSetup(args []string) error {
	fs := newFlagSet("setup")
	curveName := curveFlag(fs)
	out := fs.StringP("out", "o", ".", "directory to write the keys to")
	if err := fs.Parse(args); err != nil {
		return err
	}
	curve, err := zk.ParseCurve(*curveName)
	if err != nil {
		return err
	}
	keys, err := eligibility.Setup(curve)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}
	pkPath := filepath.Join(*out, provingKeyFile)
	vkPath := filepath.Join(*out, verifyingKeyFile)
	if err := os.WriteFile(pkPath, keys.ProvingKey, 0o600); err != nil {
		return err
	}
	if err := os.WriteFile(vkPath, keys.VerifyingKey, 0o644); err != nil {
		return err
	}
	return printJSON(map[string]any{
		"curve":            *curveName,
		"provingKey":       pkPath,
		"verifyingKey":     vkPath,
		"verifyingKeyHash": storage.VerifyingKeyHash(keys.VerifyingKey),
	})
}

func runCommitment(args []string) error {
	fs := newFlagSet("commitment")
	curveName := curveFlag(fs)
	secretStr := fs.StringP("secret", "s", "", "eligibility secret (decimal or 0x hex)")
	tokenStr := fs.StringP("token", "t", "", "eligibility token address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	curve, err := zk.ParseCurve(*curveName)
	if err != nil {
		return err
	}
	secret, err := parseSecret(*secretStr)
	if err != nil {
		return err
	}
	token, err := parseAddress("token", *tokenStr)
	if err != nil {
		return err
	}
	commitment, err := eligibility.Commitment(curve, secret, token)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"commitment": "0x" + commitment.Text(16)})
}

type proofOutput struct {
	Proof       types.HexBytes `json:"proof"`
	PublicInput types.HexBytes `json:"publicInput"`
}

func prove(curve ecc.ID, pkPath, secretStr, tokenStr string) (*proofOutput, error) {
	secret, err := parseSecret(secretStr)
	if err != nil {
		return nil, err
	}
	token, err := parseAddress("token", tokenStr)
	if err != nil {
		return nil, err
	}
	pk, err := os.ReadFile(pkPath)
	if err != nil {
		return nil, fmt.Errorf("could not read proving key: %w", err)
	}
	proof, publicInput, err := eligibility.Prove(curve, pk, secret, token)
	if err != nil {
		return nil, err
	}
	return &proofOutput{Proof: proof, PublicInput: publicInput}, nil
}

func runProve(args []string) error {
	fs := newFlagSet("prove")
	curveName := curveFlag(fs)
	pkPath := fs.String("pk", provingKeyFile, "proving key file")
	secret := fs.StringP("secret", "s", "", "eligibility secret (decimal or 0x hex)")
	token := fs.StringP("token", "t", "", "eligibility token address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	curve, err := zk.ParseCurve(*curveName)
	if err != nil {
		return err
	}
	out, err := prove(curve, *pkPath, *secret, *token)
	if err != nil {
		return err
	}
	return printJSON(out)
}

// runSign signs the request in a JSON file for the given operation and
// prints it with its signature, ready to be posted to the node.
func runSign(args []string) error {
	fs := newFlagSet("sign")
	key := fs.StringP("key", "k", "", "hex private key of the signer")
	op := fs.String("op", string(types.OpVote), "operation: newPolling, vote, toSumUp or closeElection")
	file := fs.StringP("file", "f", "", "JSON request body to sign")
	if err := fs.Parse(args); err != nil {
		return err
	}
	signer, err := ethereum.NewSignerFromHex(*key)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var (
		req any
		msg []byte
	)
	switch types.Operation(*op) {
	case types.OpNewPolling:
		r := &types.NewPollingRequest{}
		if err := json.Unmarshal(data, r); err != nil {
			return err
		}
		msg, err = r.SignedMessage()
		req = r
		if err == nil {
			r.Signature, err = signBytes(signer, msg)
		}
	case types.OpVote:
		r := &types.VoteRequest{}
		if err := json.Unmarshal(data, r); err != nil {
			return err
		}
		msg, err = r.SignedMessage()
		req = r
		if err == nil {
			r.Signature, err = signBytes(signer, msg)
		}
	case types.OpToSumUp, types.OpCloseElection:
		r := &types.ElectionRequest{}
		if err := json.Unmarshal(data, r); err != nil {
			return err
		}
		msg, err = r.SignedMessage(types.Operation(*op))
		req = r
		if err == nil {
			r.Signature, err = signBytes(signer, msg)
		}
	default:
		return fmt.Errorf("unknown operation %q", *op)
	}
	if err != nil {
		return err
	}
	return printJSON(req)
}

func signBytes(signer *ethereum.Signer, msg []byte) (types.HexBytes, error) {
	sig, err := signer.Sign(msg)
	if err != nil {
		return nil, err
	}
	return sig.Bytes(), nil
}

func runVote(args []string) error {
	fs := newFlagSet("vote")
	node := fs.StringP("node", "n", defaultNode, "davinci-dao API URL")
	key := fs.StringP("key", "k", "", "hex private key of the voter")
	creatorStr := fs.String("creator", "", "address of the election creator")
	choice := fs.Bool("yes", false, "vote yes (default is no)")
	curveName := curveFlag(fs)
	pkPath := fs.String("pk", provingKeyFile, "proving key file")
	secret := fs.StringP("secret", "s", "", "eligibility secret, empty to send an empty proof")
	if err := fs.Parse(args); err != nil {
		return err
	}
	signer, err := ethereum.NewSignerFromHex(*key)
	if err != nil {
		return err
	}
	creator, err := parseAddress("creator", *creatorStr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	cli, err := client.New(ctx, *node)
	if err != nil {
		return err
	}
	e, err := cli.Election(ctx, creator)
	if err != nil {
		return err
	}
	req := &types.VoteRequest{ElectionID: e.ID, Choice: *choice}
	if *secret != "" {
		curve, err := zk.ParseCurve(*curveName)
		if err != nil {
			return err
		}
		p, err := prove(curve, *pkPath, *secret, e.EligibilityToken.Hex())
		if err != nil {
			return err
		}
		req.Proof, req.PublicInput = p.Proof, p.PublicInput
	}
	receipt, err := cli.Vote(ctx, signer, creator, req)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func runElection(args []string) error {
	fs := newFlagSet("election")
	node := fs.StringP("node", "n", defaultNode, "davinci-dao API URL")
	creatorStr := fs.String("creator", "", "address of the election creator")
	withVoters := fs.Bool("results", false, "include the voters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	creator, err := parseAddress("creator", *creatorStr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	cli, err := client.New(ctx, *node)
	if err != nil {
		return err
	}
	if *withVoters {
		res, err := cli.Results(ctx, creator)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
	e, err := cli.Election(ctx, creator)
	if err != nil {
		return err
	}
	return printJSON(e)
}
