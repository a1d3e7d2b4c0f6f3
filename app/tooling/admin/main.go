// This program performs administrative tasks against a node's block log.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ardanlabs/conf/v3"
	"github.com/vxoid/rbc/app/tooling/admin/commands"
	"github.com/vxoid/rbc/foundation/blockchain/ledger"
	"github.com/vxoid/rbc/foundation/logger"
	"github.com/vxoid/rbc/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args   conf.Args
		Ledger struct {
			DBPath     string `conf:"default:zblock/blocks.db"`
			Difficulty uint64 `conf:"default:2"`
			Strict     bool   `conf:"default:false"`
			Verbose    bool   `conf:"default:false"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "single node proof of work ledger administration",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		log.Infow("startup", "status", "no name service", "folder", cfg.NameService.Folder, "ERROR", err)
	}

	// Narration goes to the log only when asked for. Validation reasons are
	// printed by the commands.
	ev := func(v string, args ...any) {
		if cfg.Ledger.Verbose {
			log.Infow(fmt.Sprintf(v, args...))
		}
	}

	l, err := ledger.Load(ledger.Config{
		Path:       cfg.Ledger.DBPath,
		Difficulty: cfg.Ledger.Difficulty,
		Strict:     cfg.Ledger.Strict,
		EvHandler:  ev,
	})
	if err != nil {
		return err
	}
	defer l.Close()

	return processCommands(cfg.Args, l, ns)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, l *ledger.Ledger, ns *nameservice.NameService) error {
	switch args.Num(0) {
	case "validate":
		if err := commands.Validate(l); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}

	case "bals":
		if err := commands.Balances(args.Num(1), l, ns); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "blocks":
		if err := commands.Blocks(args.Num(1), args.Num(2), l, ns); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}

	case "mint":
		var n uint64
		if s := args.Num(1); s != "" {
			var err error
			if n, err = strconv.ParseUint(s, 10, 64); err != nil {
				return fmt.Errorf("parsing number of blocks %q: %w", s, err)
			}
		}

		if err := commands.Mint(n, l); err != nil {
			return fmt.Errorf("minting: %w", err)
		}

	default:
		fmt.Println("validate:          check the whole chain")
		fmt.Println("bals [account]:    show balances for every account or one")
		fmt.Println("blocks [from to]:  show the blocks in the range, latest by default")
		fmt.Println("mint [n]:          mine blocks until the chain is invalid or n are added")
		fmt.Println("provide a command to get more help.")
	}

	return nil
}
