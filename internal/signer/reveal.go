package signer

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/chainscribe/chainscribe/internal/model"
	"github.com/chainscribe/chainscribe/pkg/helpers"
)

// ZeroSignature is the 64-byte placeholder the estimator uses to size a
// reveal witness before real signing happens.
var ZeroSignature = make([]byte, 64)

// SignRevealInput signs tx.TxIn[0] via BIP341 script-path spending,
// asserting that prevPkScript matches the context's commit script before
// signing (catching planner/signer desynchronization between the chain
// being signed and the context it was handed). primaryKey is the raw,
// untweaked primary signing key, never the commit address's tweaked key.
func SignRevealInput(
	tx *wire.MsgTx,
	prevOutFetcher txscript.PrevOutputFetcher,
	ctx *model.InscriptionContext,
	prevPkScript []byte,
	primaryKey *btcec.PrivateKey,
	auxRand *AuxRandSource,
) error {
	if !helpers.BytesEqual(ctx.CommitPkScript, prevPkScript) {
		return model.SigningFailureError("reveal input script does not match context commit script", nil)
	}

	leaf := txscript.NewBaseTapLeaf(ctx.InscriptionScript)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	sigHash, err := txscript.CalcTapscriptSignaturehash(sigHashes, txscript.SigHashDefault, tx, 0, prevOutFetcher, leaf)
	if err != nil {
		return model.SigningFailureError("reveal sighash", err)
	}

	var sig *schnorr.Signature
	if auxRand != nil {
		nonce := auxRand.Next()
		sig, err = schnorr.Sign(primaryKey, sigHash, schnorr.CustomNonce(nonce))
	} else {
		aux, rerr := RandomSeed()
		if rerr != nil {
			return model.SigningFailureError("reveal aux randomness", rerr)
		}
		sig, err = schnorr.Sign(primaryKey, sigHash, schnorr.CustomNonce(aux))
	}
	if err != nil {
		return model.SigningFailureError("reveal schnorr signature", err)
	}

	tx.TxIn[0].Witness = wire.TxWitness{sig.Serialize(), ctx.InscriptionScript, ctx.ControlBlock}
	return nil
}

// DryRunRevealWitness returns the placeholder witness the estimator uses
// to size a reveal transaction before a signature exists.
func DryRunRevealWitness(ctx *model.InscriptionContext) wire.TxWitness {
	return wire.TxWitness{ZeroSignature, ctx.InscriptionScript, ctx.ControlBlock}
}
