package flags

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/ruteri/healthcare-entity-registry/api"
	rcommon "github.com/ruteri/healthcare-entity-registry/common"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
	"github.com/ruteri/healthcare-entity-registry/signer"
	"github.com/urfave/cli/v2"
)

// LoadDotEnv reads KEY=value lines from $ENV_FILE (default .env) into the
// environment. It must run before flags are parsed so EnvVars see the values.
// Variables already set in the environment take precedence.
func LoadDotEnv() error {
	path, explicit := os.LookupEnv("ENV_FILE")
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && explicit {
		return fmt.Errorf("could not load %s: %w", path, err)
	}
	return nil
}

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := rcommon.SetupLogger(&rcommon.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: rcommon.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		AllowedOrigins:           cCtx.StringSlice(CorsOriginsFlag.Name),
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             5 * time.Minute,
	}
}

// ContractAddress parses the contract flag.
func ContractAddress(cCtx *cli.Context) (common.Address, error) {
	raw := cCtx.String(ContractAddrFlag.Name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid contract address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

// Contract resolves the registration contract named by --contract through factory.
func Contract(cCtx *cli.Context, factory interfaces.RegistryFactory) (interfaces.RegistrationContract, error) {
	address, err := ContractAddress(cCtx)
	if err != nil {
		return nil, err
	}
	contract, err := factory.RegistryFor(address)
	if err != nil {
		return nil, fmt.Errorf("could not create client for contract %s: %w", address.Hex(), err)
	}
	return contract, nil
}

// Transactor loads the signer key from --signer-key or Vault and builds
// transaction options for the connected chain. It returns nil when neither is
// configured, which leaves the contract client read-only.
func Transactor(cCtx *cli.Context, chain signer.ChainIDReader, log *slog.Logger) (*bind.TransactOpts, error) {
	var source signer.KeySource
	switch {
	case cCtx.String(SignerKeyFlag.Name) != "":
		key, err := signer.KeyFromHex(cCtx.String(SignerKeyFlag.Name))
		if err != nil {
			return nil, err
		}
		source = signer.NewStaticKey(key)
	case cCtx.String(VaultAddrFlag.Name) != "":
		vault, err := signer.NewVaultKeySource(
			cCtx.String(VaultAddrFlag.Name),
			cCtx.String(VaultTokenFlag.Name),
			cCtx.String(VaultMountFlag.Name),
			cCtx.String(VaultPathFlag.Name),
			cCtx.String(VaultFieldFlag.Name),
			log,
		)
		if err != nil {
			return nil, err
		}
		source = vault
	default:
		return nil, nil
	}

	key, err := source.PrivateKey(cCtx.Context)
	if err != nil {
		return nil, fmt.Errorf("could not load signer key: %w", err)
	}
	return signer.NewTransactor(cCtx.Context, key, chain)
}

var RpcAddrFlag = &cli.StringFlag{
	Name:    "rpc-addr",
	Value:   "http://127.0.0.1:8545",
	EnvVars: []string{"RPC_ADDR"},
	Usage:   "address to connect to RPC",
}

var ContractAddrFlag = &cli.StringFlag{
	Name:     "contract",
	EnvVars:  []string{"CONTRACT_ADDRESS"},
	Required: true,
	Usage:    "registration contract address, 0x-prefixed",
}

var StorageFlag = &cli.StringSliceFlag{
	Name:    "storage",
	Value:   cli.NewStringSlice("ipfs://127.0.0.1:5001"),
	EnvVars: []string{"STORAGE_URIS"},
	Usage:   "off-chain storage URI (ipfs://host:port, file:///path, s3://[key:secret@]bucket/prefix); repeatable",
}

var SignerKeyFlag = &cli.StringFlag{
	Name:    "signer-key",
	EnvVars: []string{"SIGNER_PRIVATE_KEY"},
	Usage:   "hex private key of the account signing registrations",
}

var VaultAddrFlag = &cli.StringFlag{
	Name:    "vault-addr",
	EnvVars: []string{"VAULT_ADDR"},
	Usage:   "Vault address to read the signer key from (used when --signer-key is empty)",
}

var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	EnvVars: []string{"VAULT_TOKEN"},
	Usage:   "Vault token",
}

var VaultMountFlag = &cli.StringFlag{
	Name:    "vault-mount",
	Value:   "secret",
	EnvVars: []string{"VAULT_MOUNT"},
	Usage:   "KV v2 mount holding the signer key",
}

var VaultPathFlag = &cli.StringFlag{
	Name:    "vault-path",
	Value:   "entity-registry/signer",
	EnvVars: []string{"VAULT_SECRET_PATH"},
	Usage:   "secret path under the mount",
}

var VaultFieldFlag = &cli.StringFlag{
	Name:    "vault-field",
	Value:   "private_key",
	EnvVars: []string{"VAULT_SECRET_FIELD"},
	Usage:   "secret field with the hex private key",
}

var SignerFlags = []cli.Flag{
	SignerKeyFlag,
	VaultAddrFlag,
	VaultTokenFlag,
	VaultMountFlag,
	VaultPathFlag,
	VaultFieldFlag,
}

var CorsOriginsFlag = &cli.StringSliceFlag{
	Name:    "cors-origin",
	EnvVars: []string{"CORS_ORIGINS"},
	Usage:   "allowed CORS origin; repeatable, any origin when unset",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	EnvVars: []string{"LOG_JSON"},
	Usage:   "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	EnvVars: []string{"LOG_DEBUG"},
	Usage:   "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "log-service",
		Value:   service,
		EnvVars: []string{"LOG_SERVICE"},
		Usage:   "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	EnvVars: []string{"METRICS_ADDR"},
	Usage:   "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var CommonFlags = append(LogFlags,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
)
