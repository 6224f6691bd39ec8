// Copyright © 2018 NAME HERE <EMAIL ADDRESS>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xelyr/privacy-gateway/pkg"
	"github.com/xelyr/privacy-gateway/pkg/netplan"
	"github.com/xelyr/privacy-gateway/pkg/provision"
)

// provisionStages lists the stages in execution order with the number of
// progress events each one emits.
var provisionStages = []struct {
	name  string
	steps int
}{
	{"resolver-setup", 3},
	{"filter-install", 2},
	{"filter-configure", 4},
	{"tunnel-configure", 6},
}

// provisionCmd represents the provision command
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "provisions this host as a privacy gateway",
	Long: `Provisions the local host as a privacy gateway in four stages:

  1. resolver-setup     installs the recursive resolver policy
  2. filter-install     installs the DNS filtering layer if needed
  3. filter-configure   binds the filter to the local resolver
  4. tunnel-configure   generates key material and starts the tunnel

The command is idempotent: re-running it reuses existing key material and
regenerates the configuration artifacts from the current inputs.`,
	PreRunE: validateProvisionFlags,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := configFromFlags(cmd)

		runLabel, _ := cmd.Flags().GetString("name")
		if runLabel == "" {
			runLabel = randomName()
		}
		cfg.RunLabel = runLabel

		if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
			log.Fatal(err)
		}

		store, err := provision.OpenStateStore(cfg.StateDBPath())
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()

		coordinator := pkg.NewProgressCoordinator()
		for _, stage := range provisionStages {
			coordinator.StartProgress(stage.name, stage.steps)
		}

		provisioner := provision.NewProvisioner(cfg, provision.LocalRunner{}, store, coordinator)
		FatalOnError(provisioner.Run())

		coordinator.Wait()
		log.Printf("Gateway successfully provisioned! (run %s)", cfg.RunLabel)
	},
}

// configFromFlags builds the provisioning configuration from the command
// flags, falling back to viper for values settable via config file or
// environment.
func configFromFlags(cmd *cobra.Command) *provision.Config {
	cfg := provision.DefaultConfig()

	if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	} else {
		cfg.Endpoint = viper.GetString("endpoint")
	}

	if password, _ := cmd.Flags().GetString("admin-password"); password != "" {
		cfg.AdminPassword = password
	} else {
		cfg.AdminPassword = viper.GetString("admin-password")
	}

	cfg.Interface, _ = cmd.Flags().GetString("interface")
	cfg.ListenPort, _ = cmd.Flags().GetInt("port")
	cfg.CIDR, _ = cmd.Flags().GetString("cidr")
	cfg.ClientName, _ = cmd.Flags().GetString("client")

	return cfg
}

func validateProvisionFlags(cmd *cobra.Command, args []string) error {
	cfg := configFromFlags(cmd)

	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, err := netplan.Plan(cfg.CIDR); err != nil {
		return err
	}

	return nil
}

func init() {
	rootCmd.AddCommand(provisionCmd)

	provisionCmd.Flags().String("endpoint", "", "Address clients connect to (detected when omitted)")
	provisionCmd.Flags().String("admin-password", "", "Admin password for the filtering layer (generated when omitted)")
	provisionCmd.Flags().StringP("interface", "i", "wg0", "Name of the tunnel interface")
	provisionCmd.Flags().IntP("port", "p", 51820, "UDP port the tunnel listens on")
	provisionCmd.Flags().String("cidr", "10.8.0.0/24", "Tunnel network in CIDR notation")
	provisionCmd.Flags().String("client", "client1", "Name of the initial client")
	provisionCmd.Flags().String("name", "", "Label for this provisioning run")
}
