package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ruteri/healthcare-entity-registry/api"
	"github.com/ruteri/healthcare-entity-registry/api/clients"
	"github.com/ruteri/healthcare-entity-registry/cmd/flags"
	"github.com/ruteri/healthcare-entity-registry/interfaces"
	"github.com/ruteri/healthcare-entity-registry/registration"
	"github.com/ruteri/healthcare-entity-registry/registry"
	"github.com/ruteri/healthcare-entity-registry/storage"
	"github.com/urfave/cli/v2"
)

var flagServerAddr = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:3001",
	EnvVars: []string{"REGISTRY_SERVER_ADDR"},
	Usage:   "backend API address",
}

var (
	flagKind            = &cli.StringFlag{Name: "kind", Required: true, Usage: "manufacturer, distributor or pharmacy"}
	flagAddress         = &cli.StringFlag{Name: "address", Usage: "entity account address"}
	flagName            = &cli.StringFlag{Name: "name", Usage: "entity name"}
	flagPhysicalAddress = &cli.StringFlag{Name: "physical-address", Usage: "entity physical address"}
	flagContactPerson   = &cli.StringFlag{Name: "contact-person", Usage: "contact person"}
	flagContactNumber   = &cli.StringFlag{Name: "contact-number", Usage: "contact phone number"}
	flagRemote          = &cli.BoolFlag{Name: "remote", Usage: "let the backend sign and submit the registration"}
)

// contract and storage flags are only read by local registration
var localRegisterFlags = append([]cli.Flag{
	flags.RpcAddrFlag,
	&cli.StringFlag{
		Name:    flags.ContractAddrFlag.Name,
		EnvVars: flags.ContractAddrFlag.EnvVars,
		Usage:   flags.ContractAddrFlag.Usage,
	},
	flags.StorageFlag,
}, flags.SignerFlags...)

func main() {
	if err := flags.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}

	app := &cli.App{
		Name:  "registration-client",
		Usage: "Register healthcare entities and manage the registry backend",
		Flags: append([]cli.Flag{
			flagServerAddr,
			flags.LogServiceFlagFn("registration-client"),
		}, flags.LogFlags...),
		Commands: []*cli.Command{
			{
				Name:  "register",
				Usage: "Register an entity: upload its payload, submit the contract transaction and mirror it",
				Flags: append([]cli.Flag{
					flagKind,
					flagAddress,
					flagName,
					flagPhysicalAddress,
					flagContactPerson,
					flagContactNumber,
					flagRemote,
				}, localRegisterFlags...),
				Action: register,
			},
			{
				Name:      "role",
				Usage:     "Show the role assigned to an address",
				ArgsUsage: "<address>",
				Action: func(cCtx *cli.Context) error {
					address, err := addressArg(cCtx, 0)
					if err != nil {
						return err
					}
					role, err := backend(cCtx).Role(cCtx.Context, address)
					if err != nil {
						return err
					}
					return printJSON(role)
				},
			},
			{
				Name:      "content",
				Usage:     "Print a stored registration payload",
				ArgsUsage: "<hash>",
				Action: func(cCtx *cli.Context) error {
					hash, err := interfaces.ParseContentHash(cCtx.Args().First())
					if err != nil {
						return err
					}
					data, err := backend(cCtx).Content(cCtx.Context, hash)
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(append(data, '\n'))
					return err
				},
			},
			{
				Name:  "entities",
				Usage: "Read mirrored registrations",
				Subcommands: []*cli.Command{
					{
						Name:      "list",
						ArgsUsage: "<kind>",
						Action: func(cCtx *cli.Context) error {
							kind, err := interfaces.ParseEntityKind(cCtx.Args().First())
							if err != nil {
								return err
							}
							records, err := backend(cCtx).ListEntities(cCtx.Context, kind)
							if err != nil {
								return err
							}
							return printJSON(records)
						},
					},
					{
						Name:      "get",
						ArgsUsage: "<kind> <address>",
						Action: func(cCtx *cli.Context) error {
							kind, err := interfaces.ParseEntityKind(cCtx.Args().First())
							if err != nil {
								return err
							}
							address, err := addressArg(cCtx, 1)
							if err != nil {
								return err
							}
							record, err := backend(cCtx).GetEntity(cCtx.Context, kind, address)
							if err != nil {
								return err
							}
							return printJSON(record)
						},
					},
				},
			},
			{
				Name:  "settings",
				Usage: "Manage application settings",
				Subcommands: []*cli.Command{
					{
						Name: "list",
						Action: func(cCtx *cli.Context) error {
							settings, err := backend(cCtx).ListSettings(cCtx.Context)
							if err != nil {
								return err
							}
							return printJSON(settings)
						},
					},
					{
						Name:      "get",
						ArgsUsage: "<key>",
						Action: func(cCtx *cli.Context) error {
							setting, err := backend(cCtx).GetSetting(cCtx.Context, cCtx.Args().First())
							if err != nil {
								return err
							}
							return printJSON(setting)
						},
					},
					{
						Name:      "set",
						ArgsUsage: "<key> <value>",
						Action: func(cCtx *cli.Context) error {
							if cCtx.NArg() != 2 {
								return errors.New("expected <key> <value>")
							}
							setting := &interfaces.Setting{Key: cCtx.Args().Get(0), Value: cCtx.Args().Get(1)}
							if err := backend(cCtx).PutSetting(cCtx.Context, setting); err != nil {
								return err
							}
							return printJSON(setting)
						},
					},
					{
						Name:      "delete",
						ArgsUsage: "<key>",
						Action: func(cCtx *cli.Context) error {
							return backend(cCtx).DeleteSetting(cCtx.Context, cCtx.Args().First())
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func register(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx := cCtx.Context

	kind, err := interfaces.ParseEntityKind(cCtx.String(flagKind.Name))
	if err != nil {
		return err
	}
	req := interfaces.RegistrationRequest{
		Address:         cCtx.String(flagAddress.Name),
		Name:            cCtx.String(flagName.Name),
		PhysicalAddress: cCtx.String(flagPhysicalAddress.Name),
		ContactPerson:   cCtx.String(flagContactPerson.Name),
		ContactNumber:   cCtx.String(flagContactNumber.Name),
	}

	mirror := backend(cCtx)
	if cCtx.Bool(flagRemote.Name) {
		resp, err := mirror.Register(ctx, kind, req)
		if err != nil {
			return err
		}
		return printJSON(resp)
	}

	ethClient, err := ethclient.DialContext(ctx, cCtx.String(flags.RpcAddrFlag.Name))
	if err != nil {
		return fmt.Errorf("could not dial RPC: %w", err)
	}
	defer ethClient.Close()

	auth, err := flags.Transactor(cCtx, ethClient, logger)
	if err != nil {
		return err
	}
	if auth == nil {
		return errors.New("local registration needs --signer-key or --vault-addr")
	}

	contract, err := flags.Contract(cCtx, registry.NewRegistryFactory(ethClient, ethClient).WithTransactOpts(auth))
	if err != nil {
		return err
	}

	content, err := storage.NewStorageBackendFactory(logger).CreateMultiStoreFromURIs(cCtx.StringSlice(flags.StorageFlag.Name))
	if err != nil {
		return err
	}

	service := registration.NewService(contract, content, mirror, nil, logger)
	result, err := service.Register(ctx, kind, req)
	if err != nil {
		return err
	}

	return printJSON(api.RegisterResponse{
		Message:     result.Message,
		Record:      result.Record,
		ContentHash: result.ContentHash,
		TxHash:      result.TxHash,
	})
}

func backend(cCtx *cli.Context) *clients.RegistryClient {
	return clients.NewRegistryClient(cCtx.String(flagServerAddr.Name))
}

func addressArg(cCtx *cli.Context, n int) (common.Address, error) {
	raw := cCtx.Args().Get(n)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
