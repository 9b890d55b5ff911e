package signer

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/chainscribe/chainscribe/internal/model"
)

// SignChain performs the real (non-dry-run) signing pass over one
// assembled chain: the commit transaction's funding input, then every
// reveal's script-path input in order.
func SignChain(
	chain *model.Chain,
	fundingAddrType model.AddressType,
	fundingPrivKey *btcec.PrivateKey,
	fundingPkScript []byte,
	fundingValue int64,
	ctxs []*model.InscriptionContext,
	primaryKey *btcec.PrivateKey,
	auxRand *AuxRandSource,
) error {
	if len(chain.Txs) == 0 {
		return model.InternalInvariantError("signing an empty chain", nil)
	}

	commit := chain.Txs[0]
	commitFetcher := txscript.NewMultiPrevOutFetcher(nil)
	commitFetcher.AddPrevOut(commit.Tx.TxIn[0].PreviousOutPoint, &wire.TxOut{PkScript: fundingPkScript, Value: fundingValue})
	if err := SignFundingInput(commit.Tx, 0, fundingAddrType, fundingPrivKey, fundingPkScript, fundingValue, commitFetcher); err != nil {
		return err
	}

	for j := 1; j < len(chain.Txs); j++ {
		reveal := chain.Txs[j]
		if reveal.ContextIndex == nil {
			return model.InternalInvariantError(fmt.Sprintf("reveal %d missing context index", j), nil)
		}
		ctx := ctxs[*reveal.ContextIndex]

		prev := chain.Txs[j-1]
		if prev.ChangeVout == nil {
			return model.InternalInvariantError(fmt.Sprintf("reveal %d has no funded predecessor output", j), nil)
		}
		prevOut := prev.Tx.TxOut[*prev.ChangeVout]

		// Signing a P2PKH or P2SH-P2WPKH funding input sets a signature
		// script, which changes the commit's txid; point each reveal at its
		// predecessor's final txid before computing the sighash.
		reveal.Tx.TxIn[0].PreviousOutPoint.Hash = prev.Tx.TxHash()

		fetcher := txscript.NewMultiPrevOutFetcher(nil)
		fetcher.AddPrevOut(reveal.Tx.TxIn[0].PreviousOutPoint, prevOut)

		if err := SignRevealInput(reveal.Tx, fetcher, ctx, prevOut.PkScript, primaryKey, auxRand); err != nil {
			return err
		}
	}

	return nil
}
