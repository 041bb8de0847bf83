// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/luxfi/tower"
	"github.com/luxfi/tower/wal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	configF    = "config"
	walF       = "wal"
	verbosityF = "verbosity"

	defaultConfig    = ""
	defaultWAL       = "tower.wal"
	defaultVerbosity = "warn"

	configFlagUsage    = "The yaml configuration file."
	walFlagUsage       = "Location of the vote log."
	verbosityFlagUsage = "Verbosity of the logs. Options: debug, info, warn, error."
)

type Config struct {
	WAL       string `mapstructure:"wal"`
	Verbosity string `mapstructure:"verbosity"`
}

func NewCmd() *cobra.Command {
	var cfgFile string

	towerCmd := &cobra.Command{
		Use:          "towerctl",
		Short:        "Inspect and drive a validator lockout tower.",
		SilenceUsage: true,
	}

	towerCmd.PersistentFlags().StringVar(&cfgFile, configF, defaultConfig, configFlagUsage)
	towerCmd.PersistentFlags().String(walF, defaultWAL, walFlagUsage)
	towerCmd.PersistentFlags().String(verbosityF, defaultVerbosity, verbosityFlagUsage)

	loadConfig := func(cmd *cobra.Command) (*Config, error) {
		v := viper.New()
		if cfgFile != "" {
			v.SetConfigType("yaml")
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		}

		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return nil, err
		}

		cfg := new(Config)
		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	towerCmd.AddCommand(
		simulateCmd(loadConfig),
		voteCmd(loadConfig),
		showCmd(loadConfig),
	)

	return towerCmd
}

type configLoader func(cmd *cobra.Command) (*Config, error)

func simulateCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "simulate <slot>...",
		Short: "Vote for the given slots on an empty in-memory tower, printing the tower after every vote.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			slots, err := parseSlots(args)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.Verbosity)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			k, err := tower.OpenKeeper(tower.Config{Logger: logger})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, slot := range slots {
				result, err := k.Vote(slot)
				if err != nil {
					return err
				}
				if err := printVote(out, slot, result); err != nil {
					return err
				}
				tower.WriteTable(out, k.State().Entries)
			}
			return printRoot(out, k)
		},
	}
}

func voteCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <slot>...",
		Short: "Durably record votes for the given slots on the tower kept in the vote log.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := parseSlots(args)
			if err != nil {
				return err
			}
			return withKeeper(cmd, loadConfig, func(k *tower.Keeper) error {
				out := cmd.OutOrStdout()
				for _, slot := range slots {
					if err := ctxErr(cmd); err != nil {
						return err
					}
					result, err := k.Vote(slot)
					if err != nil {
						return err
					}
					if err := printVote(out, slot, result); err != nil {
						return err
					}
				}
				tower.WriteTable(out, k.State().Entries)
				return printRoot(out, k)
			})
		},
	}
}

func showCmd(loadConfig configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the tower rebuilt from the vote log.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withKeeper(cmd, loadConfig, func(k *tower.Keeper) error {
				out := cmd.OutOrStdout()
				tower.WriteTable(out, k.State().Entries)
				return printRoot(out, k)
			})
		},
	}
}

func withKeeper(cmd *cobra.Command, loadConfig configLoader, f func(k *tower.Keeper) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.WAL == "" {
		return errors.New("no vote log configured")
	}

	logger, err := newLogger(cfg.Verbosity)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	log, err := wal.New(cfg.WAL)
	if err != nil {
		return fmt.Errorf("failed opening vote log: %w", err)
	}
	defer func() {
		if err := log.Close(); err != nil {
			logger.Error("Failed closing vote log", zap.String("path", cfg.WAL), zap.Error(err))
		}
	}()

	k, err := tower.OpenKeeper(tower.Config{Logger: logger, WAL: log})
	if err != nil {
		if errors.Is(err, tower.ErrCorruptState) {
			logger.Error("Refusing to use a corrupt vote log", zap.String("path", cfg.WAL), zap.Error(err))
		}
		return err
	}
	return f(k)
}

func ctxErr(cmd *cobra.Command) error {
	if ctx := cmd.Context(); ctx != nil {
		return ctx.Err()
	}
	return nil
}

func parseSlots(args []string) ([]uint64, error) {
	slots := make([]uint64, len(args))
	for i, arg := range args {
		slot, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid slot %q: %w", arg, err)
		}
		slots[i] = slot
	}
	return slots, nil
}

func printVote(w io.Writer, slot uint64, result tower.VoteResult) error {
	if _, err := fmt.Fprintf(w, "vote %d", slot); err != nil {
		return err
	}
	if len(result.ExpiredSlots) > 0 {
		if _, err := fmt.Fprintf(w, ", expired %v", result.ExpiredSlots); err != nil {
			return err
		}
	}
	if result.NewRoot != nil {
		if _, err := fmt.Fprintf(w, ", new root %d", *result.NewRoot); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

func printRoot(w io.Writer, k *tower.Keeper) error {
	root, ok := k.Root()
	if !ok {
		_, err := fmt.Fprintln(w, "root: none")
		return err
	}
	_, err := fmt.Fprintf(w, "root: %d\n", root)
	return err
}
