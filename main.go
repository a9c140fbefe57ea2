package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/opennft/nfr/registry"
	"github.com/opennft/nfr/store"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bp := flag.String("d", "~/.opennft/nfr/data", "database directory path")
	cp := flag.String("c", "~/.opennft/nfr/config.toml", "configuration file path")
	caller := flag.String("caller", "", "authenticated caller account")
	deposit := flag.Uint64("deposit", 0, "attached payment in the smallest native denomination")
	flag.Parse()

	if strings.HasPrefix(*cp, "~/") {
		usr, _ := user.Current()
		*cp = filepath.Join(usr.HomeDir, (*cp)[2:])
	}
	conf, err := Setup(*cp)
	if err != nil {
		panic(err)
	}

	if strings.HasPrefix(*bp, "~/") {
		usr, _ := user.Current()
		*bp = filepath.Join(usr.HomeDir, (*bp)[2:])
	}
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := store.OpenBadger(ctx, *bp, logger)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	rw := NewRefundWorker(ctx, logger, db, conf.Refund.DenominationExponent)
	reg, err := registry.NewRegistry(registry.Config{
		Owner:       conf.Registry.Owner,
		CostPerByte: conf.Registry.CostPerByte,
	}, db, store.NewMetadataStore(), rw)
	if err != nil {
		panic(err)
	}

	call := registry.Call{Caller: *caller, Deposit: *deposit}
	out, err := runCommand(reg, call, flag.Args())
	if err != nil {
		panic(err)
	}
	rw.Drain()
	fmt.Println(out)
}

func runCommand(reg *registry.Registry, call registry.Call, args []string) (string, error) {
	if len(args) < 1 {
		return "", errors.New("usage: nfr [flags] <mint|transfer|approve|revoke|revoke-all|burn|get|is-approved|tokens|tokens-for-owner|supply|balance> ...")
	}
	switch args[0] {
	case "mint":
		if len(args) < 3 {
			return "", errors.New("usage: mint <token> <receiver> [metadata]")
		}
		var metadata []byte
		if len(args) > 3 {
			metadata = []byte(args[3])
		}
		token, err := reg.Mint(call, args[1], args[2], metadata)
		if err != nil {
			return "", err
		}
		return marshalJSON(token)
	case "transfer":
		if len(args) < 3 {
			return "", errors.New("usage: transfer <token> <receiver> [expected-owner] [approval-id]")
		}
		var expected string
		if len(args) > 3 {
			expected = args[3]
		}
		var approvalID *uint64
		if len(args) > 4 {
			id, err := strconv.ParseUint(args[4], 10, 64)
			if err != nil {
				return "", err
			}
			approvalID = &id
		}
		err := reg.Transfer(call, args[2], args[1], expected, approvalID)
		if err != nil {
			return "", err
		}
		return "OK", nil
	case "approve":
		if len(args) < 3 {
			return "", errors.New("usage: approve <token> <account> [msg]")
		}
		var msg string
		if len(args) > 3 {
			msg = args[3]
		}
		id, err := reg.Approve(call, args[1], args[2], msg)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(id), nil
	case "revoke":
		if len(args) < 3 {
			return "", errors.New("usage: revoke <token> <account>")
		}
		err := reg.Revoke(call, args[1], args[2])
		if err != nil {
			return "", err
		}
		return "OK", nil
	case "revoke-all":
		if len(args) < 2 {
			return "", errors.New("usage: revoke-all <token>")
		}
		err := reg.RevokeAll(call, args[1])
		if err != nil {
			return "", err
		}
		return "OK", nil
	case "burn":
		if len(args) < 2 {
			return "", errors.New("usage: burn <token>")
		}
		err := reg.Burn(call, args[1])
		if err != nil {
			return "", err
		}
		return "OK", nil
	case "get":
		if len(args) < 2 {
			return "", errors.New("usage: get <token>")
		}
		token, err := reg.Get(args[1])
		if err != nil {
			return "", err
		}
		return marshalJSON(token)
	case "is-approved":
		if len(args) < 3 {
			return "", errors.New("usage: is-approved <token> <account> [approval-id]")
		}
		var approvalID *uint64
		if len(args) > 3 {
			id, err := strconv.ParseUint(args[3], 10, 64)
			if err != nil {
				return "", err
			}
			approvalID = &id
		}
		approved, err := reg.IsApproved(args[1], args[2], approvalID)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(approved), nil
	case "tokens":
		from, limit, err := parseRange(args[1:])
		if err != nil {
			return "", err
		}
		tokens, err := reg.Tokens(from, limit)
		if err != nil {
			return "", err
		}
		return marshalJSON(tokens)
	case "tokens-for-owner":
		if len(args) < 2 {
			return "", errors.New("usage: tokens-for-owner <owner> [from] [limit]")
		}
		from, limit, err := parseRange(args[2:])
		if err != nil {
			return "", err
		}
		tokens, err := reg.TokensForOwner(args[1], from, limit)
		if err != nil {
			return "", err
		}
		return marshalJSON(tokens)
	case "supply":
		supply, err := reg.TotalSupply()
		if err != nil {
			return "", err
		}
		return fmt.Sprint(supply), nil
	case "balance":
		if len(args) < 2 {
			return "", errors.New("usage: balance <owner>")
		}
		balance, err := reg.BalanceOf(args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprint(balance), nil
	default:
		return "", fmt.Errorf("unknown command %s", args[0])
	}
}

func parseRange(args []string) (uint64, int, error) {
	var from uint64
	var limit int
	if len(args) > 0 {
		f, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return 0, 0, err
		}
		from = f
	}
	if len(args) > 1 {
		l, err := strconv.Atoi(args[1])
		if err != nil {
			return 0, 0, err
		}
		limit = l
	}
	return from, limit, nil
}

func marshalJSON(val interface{}) (string, error) {
	data, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
