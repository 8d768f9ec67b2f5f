// Command concordd runs a single ledger-core node: it loads a node
// configuration, wires the Application (job queue, timekeeper, node
// store, validations bookkeeping), and starts the job queue's worker
// pool until interrupted. Grounded on the teacher's cmd/synnergy/main.go
// cobra-root-plus-subcommands shape.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"concordd/internal/app"
	"concordd/internal/identity"
	"concordd/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "concordd"}
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(identityCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var configDir, env string
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "start a node and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir, env)
			if err != nil {
				return fmt.Errorf("concordd: %w", err)
			}

			a, err := app.New(app.Config{Source: *cfg, UNLMembers: cfg.Validation.UNL})
			if err != nil {
				return fmt.Errorf("concordd: %w", err)
			}

			a.Start(workers)
			a.Log.WithField("config", a.Describe()).Info("concordd ready")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			a.Log.Info("shutting down")
			a.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "config", "directory holding default.yaml and environment overlays")
	cmd.Flags().StringVar(&env, "env", "", "environment overlay name (e.g. \"testnet\"), merged over default.yaml")
	cmd.Flags().IntVar(&workers, "workers", 4, "job queue worker pool size")
	return cmd
}

func statusCmd() *cobra.Command {
	var configDir, env string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "print the effective configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir, env)
			if err != nil {
				return fmt.Errorf("concordd: %w", err)
			}
			fmt.Printf("node_db=%s path=%s peers_max=%d fee_default=%d unl=%d\n",
				cfg.Node.NodeDBType, cfg.Node.NodeDBPath, cfg.Peers.Max, cfg.Fee.BaseFeeDrops, len(cfg.Validation.UNL))
			return nil
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "config", "directory holding default.yaml and environment overlays")
	cmd.Flags().StringVar(&env, "env", "", "environment overlay name (e.g. \"testnet\"), merged over default.yaml")
	return cmd
}

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "identity"}

	var entropyBits int
	generate := &cobra.Command{
		Use:   "generate",
		Short: "generate a new node identity and print its recovery mnemonic",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identity.Generate(entropyBits)
			if err != nil {
				return fmt.Errorf("concordd: %w", err)
			}
			manifest := identity.NewManifest(id, time.Now().UTC())
			data, err := manifest.Marshal()
			if err != nil {
				return fmt.Errorf("concordd: %w", err)
			}
			fmt.Printf("mnemonic: %s\naccount:  %s\n---\n%s", id.Mnemonic, id.Account, data)
			return nil
		},
	}
	generate.Flags().IntVar(&entropyBits, "entropy-bits", 128, "BIP-39 entropy size (128 or 256)")
	cmd.AddCommand(generate)

	show := &cobra.Command{
		Use:   "show [mnemonic]",
		Short: "recover and print a node's account id from its mnemonic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := identity.FromMnemonic(args[0], "")
			if err != nil {
				return fmt.Errorf("concordd: %w", err)
			}
			fmt.Println(id.Account)
			return nil
		},
	}
	cmd.AddCommand(show)
	return cmd
}
