// Package chainscribe packs a batch of ordinal-style inscriptions onto
// Bitcoin by building, fee-estimating, and signing linked chains of
// Taproot commit+reveal transactions seeded by a supplied set of funding
// outputs.
//
// Build is synchronous and single-threaded: it performs no I/O, spawns no
// goroutines, and is not safe to call re-entrantly on a shared request.
// Callers wanting parallelism should build disjoint requests concurrently.
package chainscribe

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/chainscribe/chainscribe/internal/envelope"
	"github.com/chainscribe/chainscribe/internal/model"
	"github.com/chainscribe/chainscribe/internal/network"
	"github.com/chainscribe/chainscribe/internal/packager"
	"github.com/chainscribe/chainscribe/internal/planner"
	"github.com/chainscribe/chainscribe/internal/signer"
	"github.com/chainscribe/chainscribe/pkg/logging"
)

// Re-export the data model so callers only need to import this package.
type (
	InscriptionRequest  = model.InscriptionRequest
	FundingOutput       = model.FundingOutput
	InscriptionPayload  = model.InscriptionPayload
	Result              = model.Result
	ChainResult         = model.ChainResult
	LastTxInfo          = model.LastTxInfo
	NetworkParams       = model.NetworkParams
)

var (
	Mainnet = network.Mainnet
	Testnet = network.Testnet
)

// Build runs the full envelope->plan->sign->package pipeline for one
// request and returns the result envelope. It never panics on malformed
// input; every failure mode is reported as Result.Success == false with a
// descriptive Result.Error, per the engine's error handling design.
func Build(req *model.InscriptionRequest) *model.Result {
	log := logging.GetDefault().Component("chainscribe")

	if err := validate(req); err != nil {
		log.Error("validation failed", "error", err)
		return packager.Failure(err)
	}

	revealOutValue := req.RevealOutValue
	if revealOutValue <= 0 {
		revealOutValue = model.DefaultRevealOutValue
	}
	minChangeValue := req.MinChangeValue
	if minChangeValue <= 0 {
		minChangeValue = model.DefaultMinChangeValue
	}

	chainParams := network.ChainParams(req.Network)

	fundingSources, err := resolveFunding(req.FundingOutputs, chainParams)
	if err != nil {
		log.Error("funding resolution failed", "error", err)
		return packager.Failure(err)
	}
	primaryKey := fundingSources[0].PrivKey

	log.Info("building envelopes", "count", len(req.Payloads))
	ctxs, err := envelope.BuildAll(chainParams, primaryKey, req.Payloads)
	if err != nil {
		log.Error("envelope build failed", "error", err)
		return packager.Failure(err)
	}

	finalChangePkScript, err := network.AddrToPkScript(req.FinalChangeAddress, chainParams)
	if err != nil {
		log.Error("final change address invalid", "error", err)
		return packager.Failure(model.ValidationError("final change address", err))
	}

	log.Info("laying out chains", "funding", len(fundingSources), "inscriptions", len(ctxs))
	plan, err := planner.Layout(fundingSources, ctxs, req.CommitFeeRate, req.RevealFeeRate, revealOutValue, minChangeValue, finalChangePkScript)
	if err != nil {
		log.Error("chain layout failed", "error", err)
		return packager.Failure(err)
	}

	var auxRand *signer.AuxRandSource
	if req.AuxRandSeed != nil {
		auxRand = signer.NewAuxRandSource(*req.AuxRandSeed)
	}

	for i := range plan.Chains {
		fs := fundingSources[i]
		log.Debug("signing chain", "chain_index", i, "txs", len(plan.Chains[i].Txs))
		if err := signer.SignChain(&plan.Chains[i], fs.AddrType, fs.PrivKey, fs.PkScript, fs.Output.Value, ctxs, primaryKey, auxRand); err != nil {
			log.Error("chain signing failed", "chain_index", i, "error", err)
			return packager.Failure(err)
		}
	}

	networkName := "mainnet"
	if req.Network != nil && req.Network.IsTest {
		networkName = "testnet"
	}

	batchID := packager.NewBatchID()
	result, err := packager.Package(plan, ctxs, req.FundingOutputs[0].PrivateKeyWIF, req.FinalChangeAddress, finalChangePkScript, networkName, revealOutValue, minChangeValue, batchID)
	if err != nil {
		log.Error("packaging failed", "error", err)
		return packager.Failure(err)
	}

	log.Info("build complete", "batch_id", batchID, "chains", len(result.Chains), "total_fee", result.TotalEstimatedFee)
	return result
}

func validate(req *model.InscriptionRequest) error {
	if req == nil {
		return model.ValidationError("nil request", nil)
	}
	if len(req.FundingOutputs) == 0 {
		return model.ValidationError("empty funding list", nil)
	}
	if len(req.Payloads) == 0 {
		return model.ValidationError("empty inscription list", nil)
	}
	for _, fo := range req.FundingOutputs {
		if fo.PrivateKeyWIF == "" {
			return model.ValidationError("funding entry missing private key", nil)
		}
	}
	return nil
}

func resolveFunding(outputs []model.FundingOutput, params *chaincfg.Params) ([]planner.FundingSource, error) {
	sources := make([]planner.FundingSource, len(outputs))
	for i, fo := range outputs {
		wif, err := btcutil.DecodeWIF(fo.PrivateKeyWIF)
		if err != nil {
			return nil, model.ValidationError("decode funding private key", err)
		}
		addr, addrType, err := network.DecodeAddress(fo.Address, params)
		if err != nil {
			return nil, model.ValidationError("decode funding address", err)
		}
		pkScript, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return nil, model.ValidationError("funding pk script", err)
		}
		sources[i] = planner.FundingSource{
			Output:   fo,
			AddrType: addrType,
			PrivKey:  wif.PrivKey,
			PkScript: pkScript,
		}
	}
	return sources, nil
}
