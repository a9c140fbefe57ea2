package main

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

const defaultCostPerByte = 10000

type Configuration struct {
	Registry RegistryConfiguration `toml:"registry"`
	Refund   RefundConfiguration   `toml:"refund"`
}

type RegistryConfiguration struct {
	// Owner is the only account allowed to mint.
	Owner string `toml:"owner"`
	// CostPerByte is the storage price in the smallest native denomination.
	CostPerByte uint64 `toml:"cost-per-byte"`
}

type RefundConfiguration struct {
	// DenominationExponent renders scheduled refund amounts for the
	// external transfer rail, e.g. 8 for a 10^-8 base unit.
	DenominationExponent int32 `toml:"denomination-exponent"`
}

func Setup(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conf Configuration
	err = toml.Unmarshal(data, &conf)
	if err != nil {
		return nil, err
	}
	if conf.Registry.Owner == "" {
		return nil, fmt.Errorf("registry.owner required in %s", path)
	}
	if conf.Registry.CostPerByte == 0 {
		conf.Registry.CostPerByte = defaultCostPerByte
	}
	return &conf, nil
}
