// Package feeest implements the two-pass fee and change estimator: size a
// candidate transaction under a plausible witness, compute its fee at the
// requested feerate, and decide whether the change output survives, gets
// dropped, or the transaction is simply unaffordable.
package feeest

import (
	"math"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/chainscribe/chainscribe/internal/model"
	"github.com/chainscribe/chainscribe/internal/signer"
)

const witnessScaleFactor = 4

// AdjustedVSize computes the BIP141 virtual size: weight = stripped*3 +
// full, vsize = ceil(weight/4). Grounded on the source's
// GetTransactionWeight/GetTxVirtualSize pair.
func AdjustedVSize(tx *wire.MsgTx) int64 {
	baseSize := int64(tx.SerializeSizeStripped())
	totalSize := int64(tx.SerializeSize())
	weight := baseSize*(witnessScaleFactor-1) + totalSize
	return (weight + witnessScaleFactor - 1) / witnessScaleFactor
}

// feeAtRate floors the fee at 1 sat/vB.
func feeAtRate(vsize int64, feerate float64) int64 {
	fee := int64(math.Ceil(float64(vsize) * feerate))
	if fee < vsize {
		fee = vsize
	}
	return fee
}

// EstimateCommit sizes the commit transaction (single input, single
// output) by dry-run signing the funding input for real, then sets the
// P2TR output value to whatever remains. A negative remainder is a
// funding shortage, surfaced by the caller.
func EstimateCommit(
	tx *wire.MsgTx,
	prevOutFetcher txscript.PrevOutputFetcher,
	fundingPkScript []byte,
	fundingValue int64,
	addrType model.AddressType,
	privKey *btcec.PrivateKey,
	feerate float64,
) (fee int64, outputValue int64, err error) {
	clone := tx.Copy()
	if err := signer.SignFundingInput(clone, 0, addrType, privKey, fundingPkScript, fundingValue, prevOutFetcher); err != nil {
		return 0, 0, err
	}
	vsize := AdjustedVSize(clone)
	fee = feeAtRate(vsize, feerate)
	outputValue = fundingValue - fee
	return fee, outputValue, nil
}

// EstimateReveal sizes a reveal transaction that currently carries both
// outputs (dust at index 0, change placeholder at index 1). totalInput is
// the value available from the previous transaction's forwarded output;
// fixedOutput is the reveal dust value.
func EstimateReveal(
	tx *wire.MsgTx,
	ctx *model.InscriptionContext,
	prevOutFetcher txscript.PrevOutputFetcher,
	feerate float64,
	totalInput int64,
	fixedOutput int64,
	minChange int64,
) model.EstimateResult {
	withChange := tx.Copy()
	withChange.TxIn[0].Witness = signer.DryRunRevealWitness(ctx)
	vsize := AdjustedVSize(withChange)
	fee := feeAtRate(vsize, feerate)
	change := totalInput - fixedOutput - fee

	if change >= minChange {
		return model.EstimateResult{Fee: fee, Change: change, Outcome: model.ChangeKept}
	}

	withoutChange := tx.Copy()
	withoutChange.TxOut = withoutChange.TxOut[:1]
	withoutChange.TxIn[0].Witness = signer.DryRunRevealWitness(ctx)
	vsizeNoChange := AdjustedVSize(withoutChange)
	feeNoChange := feeAtRate(vsizeNoChange, feerate)
	changeNoChange := totalInput - fixedOutput - feeNoChange

	if changeNoChange >= 0 {
		return model.EstimateResult{Fee: feeNoChange, Change: 0, Outcome: model.ChangeDropped}
	}
	return model.EstimateResult{Fee: fee, Change: change, Outcome: model.ChangeInsufficient}
}
