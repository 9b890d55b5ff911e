// Command chainscribe builds, fee-estimates, and signs a batch of
// ordinal-style inscriptions from a JSON request file and writes the
// resulting chains to stdout or a file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chainscribe/chainscribe"
	"github.com/chainscribe/chainscribe/internal/config"
	"github.com/chainscribe/chainscribe/internal/model"
	"github.com/chainscribe/chainscribe/internal/progress"
	"github.com/chainscribe/chainscribe/internal/resultstore"
	"github.com/chainscribe/chainscribe/pkg/helpers"
	"github.com/chainscribe/chainscribe/pkg/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

// wireRequest is the JSON shape read from --request. It carries the
// model.InscriptionRequest fields except Network and AuxRandSeed: the
// network comes from the testnet field (or the config), and no aux-rand
// seed is read, so CLI builds sign with fresh randomness. The *_btc
// fields are BTC-denominated alternatives to the satoshi fields.
type wireRequest struct {
	FundingOutputs      []model.FundingOutput     `json:"funding_outputs"`
	Payloads            []model.InscriptionPayload `json:"payloads"`
	CommitFeeRate       float64                   `json:"commit_fee_rate"`
	RevealFeeRate       float64                   `json:"reveal_fee_rate"`
	RevealOutValue      int64                     `json:"reveal_out_value"`
	RevealOutValueBTC   string                    `json:"reveal_out_value_btc"`
	FinalChangeAddress  string                    `json:"final_change_address"`
	MinChangeValue      int64                     `json:"min_change_value"`
	MinChangeValueBTC   string                    `json:"min_change_value_btc"`
	Testnet             bool                      `json:"testnet"`
}

func main() {
	var (
		dataDir     = flag.String("data-dir", "~/.chainscribe", "Data directory")
		configFile  = flag.String("config", "", "Config file path; only its directory is used and config.yaml there is read (default: <data-dir>/config.yaml)")
		requestFile = flag.String("request", "", "Path to the inscription request JSON file (required)")
		outputFile  = flag.String("output", "", "Path to write the result JSON (default: stdout)")
		logLevel    = flag.String("log-level", "", "Log level, overrides config (debug, info, warn, error)")
		watch       = flag.Bool("watch", false, "Expose a progress WebSocket while building")
		showVersion = flag.Bool("version", false, "Show version and exit")
	)
	flag.Parse()

	log := logging.New(&logging.Config{Level: "info", TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	if *showVersion {
		log.Infof("chainscribe %s (commit: %s)", version, commit)
		os.Exit(0)
	}

	if *requestFile == "" {
		log.Fatal("--request is required")
	}

	configDir := *dataDir
	if *configFile != "" {
		configDir = filepath.Dir(*configFile)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	log = logging.New(&logging.Config{Level: cfg.Logging.Level, TimeFormat: time.TimeOnly})
	logging.SetDefault(log)

	log.Info("config loaded", "path", config.Path(configDir))

	req, err := loadRequest(*requestFile, cfg)
	if err != nil {
		log.Fatal("failed to load request", "error", err)
	}

	var hub *progress.Hub
	if *watch {
		hub = progress.NewHub()
		go hub.Run()

		mux := http.NewServeMux()
		mux.Handle("/progress", hub)
		server := &http.Server{Addr: cfg.Progress.ListenAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("progress server stopped", "error", err)
			}
		}()
		log.Info("progress hub listening", "addr", cfg.Progress.ListenAddr)
	}

	store, err := resultstore.Open(&resultstore.Config{DataDir: cfg.Storage.DataDir})
	if err != nil {
		log.Fatal("failed to open result store", "error", err)
	}
	defer store.Close()

	log.Info("building batch", "inscriptions", len(req.Payloads), "funding_outputs", len(req.FundingOutputs))
	result := chainscribe.Build(req)

	if !result.Success {
		log.Error("build failed", "error", result.Error)
	} else {
		log.Info("build succeeded", "batch_id", result.BatchID, "chains", len(result.Chains), "total_fee_sats", result.TotalEstimatedFee, "total_fee_btc", helpers.SatoshisToBTC(uint64(result.TotalEstimatedFee)))
		if hub != nil {
			hub.Publish(model.BuildEvent{BatchID: result.BatchID, Phase: "batch_complete", Detail: fmt.Sprintf("%d chains", len(result.Chains))})
		}
		if err := store.SaveResult(result, time.Now().Unix()); err != nil {
			log.Error("failed to persist result", "error", err)
		}
	}

	if err := writeResult(result, *outputFile); err != nil {
		log.Fatal("failed to write result", "error", err)
	}

	if !result.Success {
		os.Exit(1)
	}
}

func loadRequest(path string, cfg *config.Config) (*model.InscriptionRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}

	var wire wireRequest
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse request file: %w", err)
	}

	req := &model.InscriptionRequest{
		FundingOutputs:     wire.FundingOutputs,
		Payloads:           wire.Payloads,
		CommitFeeRate:      wire.CommitFeeRate,
		RevealFeeRate:      wire.RevealFeeRate,
		RevealOutValue:     wire.RevealOutValue,
		FinalChangeAddress: wire.FinalChangeAddress,
		MinChangeValue:     wire.MinChangeValue,
	}

	// BTC-denominated fields are a convenience over the satoshi fields
	// above; when both are set the satoshi value wins.
	if wire.RevealOutValueBTC != "" && req.RevealOutValue <= 0 {
		sats, err := helpers.BTCToSatoshis(wire.RevealOutValueBTC)
		if err != nil {
			return nil, fmt.Errorf("parse reveal_out_value_btc: %w", err)
		}
		req.RevealOutValue = int64(sats)
	}
	if wire.MinChangeValueBTC != "" && req.MinChangeValue <= 0 {
		sats, err := helpers.BTCToSatoshis(wire.MinChangeValueBTC)
		if err != nil {
			return nil, fmt.Errorf("parse min_change_value_btc: %w", err)
		}
		req.MinChangeValue = int64(sats)
	}

	if req.CommitFeeRate <= 0 {
		req.CommitFeeRate = cfg.Fees.CommitFeeRate
	}
	if req.RevealFeeRate <= 0 {
		req.RevealFeeRate = cfg.Fees.RevealFeeRate
	}
	if req.RevealOutValue <= 0 {
		req.RevealOutValue = cfg.Fees.RevealOutValue
	}
	if req.MinChangeValue <= 0 {
		req.MinChangeValue = cfg.Fees.MinChangeValue
	}

	if wire.Testnet || cfg.Network == "testnet" {
		req.Network = chainscribe.Testnet
	} else {
		req.Network = chainscribe.Mainnet
	}

	return req, nil
}

func writeResult(result *model.Result, outputFile string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	if outputFile == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(outputFile, data, 0600)
}
