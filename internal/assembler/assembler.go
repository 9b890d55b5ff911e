// Package assembler builds one chain's commit and reveal transactions,
// driving the fee estimator at each step and wiring change forwarding
// between consecutive transactions.
package assembler

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/chainscribe/chainscribe/internal/feeest"
	"github.com/chainscribe/chainscribe/internal/model"
)

const (
	txVersion   = 2
	rbfSequence = 0xfffffffd
)

// Input bundles one chain's funding source and the slice of inscription
// contexts the planner assigned to it.
type Input struct {
	Funding         model.FundingOutput
	FundingAddrType model.AddressType
	FundingPrivKey  *btcec.PrivateKey
	FundingPkScript []byte
	Contexts        []*model.InscriptionContext
	CommitFeeRate   float64
	RevealFeeRate   float64
	RevealOutValue  int64
	MinChangeValue  int64
	FinalChangePkScript []byte
}

// Assemble builds one chain. A chain of length 1 (commit only, no
// reveals) is never emitted; callers must not invoke Assemble with zero
// contexts.
func Assemble(in Input) (*model.Chain, error) {
	if len(in.Contexts) == 0 {
		return nil, model.InternalInvariantError("assemble called with zero inscriptions", nil)
	}

	commitTx, commitFee, outputValue, err := buildCommit(in)
	if err != nil {
		return nil, err
	}
	if outputValue < 0 {
		return nil, model.FundingShortageError(fmt.Sprintf("commit value cannot cover its own fee: funding %d, fee %d", in.Funding.Value, commitFee), nil)
	}
	commitTx.TxOut[0].Value = outputValue

	chain := model.Chain{Txs: []model.AssembledTx{{
		Tx:           commitTx,
		Fee:          commitFee,
		ContextIndex: nil,
		ChangeVout:   intPtr(0),
	}}}

	prevTxID := commitTx.TxHash()
	prevVout := uint32(0)
	prevAvailable := outputValue

	for i, ctx := range in.Contexts {
		isLast := i == len(in.Contexts)-1

		revealTx := wire.NewMsgTx(txVersion)
		revealIn := wire.NewTxIn(wire.NewOutPoint(&prevTxID, prevVout), nil, nil)
		revealIn.Sequence = rbfSequence
		revealTx.AddTxIn(revealIn)
		revealTx.AddTxOut(wire.NewTxOut(in.RevealOutValue, ctx.RevealPkScript))

		var changePkScript []byte
		if isLast {
			changePkScript = in.FinalChangePkScript
		} else {
			changePkScript = in.Contexts[i+1].CommitPkScript
		}
		revealTx.AddTxOut(wire.NewTxOut(0, changePkScript))

		prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
		prevOutFetcher.AddPrevOut(revealIn.PreviousOutPoint, &wire.TxOut{PkScript: ctx.CommitPkScript, Value: prevAvailable})

		result := feeest.EstimateReveal(revealTx, ctx, prevOutFetcher, in.RevealFeeRate, prevAvailable, in.RevealOutValue, in.MinChangeValue)

		// ContextIndex must be the context's own global PayloadIndex, not
		// the chain-local loop index i: callers look this index up against
		// the engine's full InscriptionContext slice, not in.Contexts.
		payloadIdx := ctx.PayloadIndex
		switch result.Outcome {
		case model.ChangeKept:
			revealTx.TxOut[1].Value = result.Change
			chain.Txs = append(chain.Txs, model.AssembledTx{Tx: revealTx, Fee: result.Fee, ContextIndex: &payloadIdx, ChangeVout: intPtr(1)})
			prevAvailable = result.Change
			prevTxID = revealTx.TxHash()
			prevVout = 1

		case model.ChangeDropped:
			if !isLast {
				return nil, model.FundingShortageError(fmt.Sprintf("non-final reveal %d must carry change", i), nil)
			}
			revealTx.TxOut = revealTx.TxOut[:1]
			chain.Txs = append(chain.Txs, model.AssembledTx{Tx: revealTx, Fee: result.Fee, ContextIndex: &payloadIdx, ChangeVout: nil})
			prevAvailable = 0

		case model.ChangeInsufficient:
			return nil, model.FundingShortageError(fmt.Sprintf("chain broken: balance %d cannot cover reveal fee + dust", prevAvailable), nil)

		default:
			return nil, model.InternalInvariantError("unreachable estimator outcome", nil)
		}
	}

	return &chain, nil
}

func buildCommit(in Input) (*wire.MsgTx, int64, int64, error) {
	txHash, vout := in.Funding.TxID, in.Funding.Vout
	outpointHash, err := outpointHashFromString(txHash)
	if err != nil {
		return nil, 0, 0, model.ValidationError("invalid funding txid", err)
	}

	tx := wire.NewMsgTx(txVersion)
	txIn := wire.NewTxIn(wire.NewOutPoint(outpointHash, vout), nil, nil)
	txIn.Sequence = rbfSequence
	tx.AddTxIn(txIn)
	tx.AddTxOut(wire.NewTxOut(0, in.Contexts[0].CommitPkScript))

	prevOutFetcher := txscript.NewMultiPrevOutFetcher(nil)
	prevOutFetcher.AddPrevOut(txIn.PreviousOutPoint, &wire.TxOut{PkScript: in.FundingPkScript, Value: in.Funding.Value})

	fee, outputValue, err := feeest.EstimateCommit(tx, prevOutFetcher, in.FundingPkScript, in.Funding.Value, in.FundingAddrType, in.FundingPrivKey, in.CommitFeeRate)
	if err != nil {
		return nil, 0, 0, err
	}
	return tx, fee, outputValue, nil
}

func intPtr(v int) *int { return &v }

func outpointHashFromString(txid string) (*chainhash.Hash, error) {
	return chainhash.NewHashFromStr(txid)
}
