// Package envelope compiles one inscription payload into its ordinals
// script-tree leaf and derives the single-leaf Taproot commit address,
// control block, and leaf hash for it.
package envelope

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/chainscribe/chainscribe/internal/model"
	"github.com/chainscribe/chainscribe/internal/network"
)

const ordPrefix = "ord"
const maxBodyChunk = 520

// Build compiles the envelope for one payload and derives its commit
// address. primaryKey is always the first funding output's key: every
// envelope's internal pubkey is reused from it, never diversified (see
// note in 4.1 on primary-key reuse).
func Build(params *chaincfg.Params, primaryKey *btcec.PrivateKey, index int, payload model.InscriptionPayload) (*model.InscriptionContext, error) {
	pubKeyBytes := schnorr.SerializePubKey(primaryKey.PubKey())

	builder := txscript.NewScriptBuilder().
		AddData(pubKeyBytes).
		AddOp(txscript.OP_CHECKSIG).
		AddOp(txscript.OP_FALSE).
		AddOp(txscript.OP_IF).
		AddData([]byte(ordPrefix)).
		AddOp(txscript.OP_DATA_1).
		AddOp(txscript.OP_DATA_1).
		AddData([]byte(payload.ContentType)).
		AddOp(txscript.OP_0)

	body := payload.Body
	for i := 0; i < len(body); i += maxBodyChunk {
		end := i + maxBodyChunk
		if end > len(body) {
			end = len(body)
		}
		builder.AddFullData(body[i:end])
	}

	script, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("build inscription script for payload %d: %w", index, err)
	}
	script = append(script, txscript.OP_ENDIF)

	leaf := txscript.NewBaseTapLeaf(script)
	proof := &txscript.TapscriptProof{
		TapLeaf:  txscript.NewBaseTapLeaf(pubKeyBytes),
		RootNode: leaf,
	}

	controlBlock := proof.ToControlBlock(primaryKey.PubKey())
	controlBlockBytes, err := controlBlock.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("control block for payload %d: %w", index, err)
	}

	leafHash := leaf.TapHash()
	outputKey := txscript.ComputeTaprootOutputKey(primaryKey.PubKey(), leafHash[:])
	commitAddr, err := btcutil.NewAddressTaproot(schnorr.SerializePubKey(outputKey), params)
	if err != nil {
		return nil, fmt.Errorf("derive commit address for payload %d: %w", index, err)
	}
	commitPkScript, err := txscript.PayToAddrScript(commitAddr)
	if err != nil {
		return nil, fmt.Errorf("commit pk script for payload %d: %w", index, err)
	}

	revealPkScript, err := network.AddrToPkScript(payload.RevealAddress, params)
	if err != nil {
		return nil, fmt.Errorf("reveal address for payload %d: %w", index, err)
	}

	var internalPubKey [32]byte
	copy(internalPubKey[:], pubKeyBytes)

	return &model.InscriptionContext{
		PayloadIndex:      index,
		InternalPubKey:    internalPubKey,
		InscriptionScript: script,
		CommitAddress:     commitAddr.EncodeAddress(),
		CommitPkScript:    commitPkScript,
		ControlBlock:      controlBlockBytes,
		LeafHash:          leafHash,
		RevealPkScript:    revealPkScript,
	}, nil
}

// BuildAll derives one InscriptionContext per payload, in order.
func BuildAll(params *chaincfg.Params, primaryKey *btcec.PrivateKey, payloads []model.InscriptionPayload) ([]*model.InscriptionContext, error) {
	ctxs := make([]*model.InscriptionContext, len(payloads))
	for i, p := range payloads {
		ctx, err := Build(params, primaryKey, i, p)
		if err != nil {
			return nil, err
		}
		ctxs[i] = ctx
	}
	return ctxs, nil
}
