// Package planner assigns inscriptions to chains using a sequential-fill
// policy: walk inscriptions in request order, pack up to
// model.MaxTransactionsPerChain-1 of them per funding output, and advance
// to the next funding output once the current chain is full.
package planner

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/chainscribe/chainscribe/internal/assembler"
	"github.com/chainscribe/chainscribe/internal/model"
)

// FundingSource is one funding output already resolved to its signing
// material.
type FundingSource struct {
	Output   model.FundingOutput
	AddrType model.AddressType
	PrivKey  *btcec.PrivateKey
	PkScript []byte
}

// Layout walks ctxs in order, handing sequential slices to the assembler
// per funding source, until every inscription has a chain. Sequential
// fill (vs. best-fit) yields deterministic txids given deterministic
// inputs and matches the expectation that inscription order maps to a
// contiguous prefix of chain outputs.
func Layout(
	funding []FundingSource,
	ctxs []*model.InscriptionContext,
	commitFeeRate, revealFeeRate float64,
	revealOutValue, minChangeValue int64,
	finalChangePkScript []byte,
) (*model.ChainPlan, error) {
	total := len(ctxs)
	plan := &model.ChainPlan{}

	inscriptionCursor := 0
	utxoCursor := 0

	for inscriptionCursor < total {
		if utxoCursor >= len(funding) {
			return nil, model.FundingShortageError(
				fmt.Sprintf("UTXO count insufficient for %d inscriptions", total), nil)
		}

		remaining := total - inscriptionCursor
		take := remaining
		if take > model.MaxTransactionsPerChain-1 {
			take = model.MaxTransactionsPerChain - 1
		}

		src := funding[utxoCursor]
		chain, err := assembler.Assemble(assembler.Input{
			Funding:             src.Output,
			FundingAddrType:     src.AddrType,
			FundingPrivKey:      src.PrivKey,
			FundingPkScript:     src.PkScript,
			Contexts:            ctxs[inscriptionCursor : inscriptionCursor+take],
			CommitFeeRate:       commitFeeRate,
			RevealFeeRate:       revealFeeRate,
			RevealOutValue:      revealOutValue,
			MinChangeValue:      minChangeValue,
			FinalChangePkScript: finalChangePkScript,
		})
		if err != nil {
			return nil, err
		}

		plan.Chains = append(plan.Chains, *chain)
		inscriptionCursor += take
		utxoCursor++
	}

	return plan, nil
}
