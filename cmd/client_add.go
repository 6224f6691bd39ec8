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
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xelyr/privacy-gateway/pkg/netplan"
	"github.com/xelyr/privacy-gateway/pkg/provision"
)

// clientAddCmd represents the client add command
var clientAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "adds a client to a provisioned gateway",
	Long: `Adds a named client to an already provisioned gateway: generates the
client's key material, assigns it the next free tunnel address, rewrites
the server configuration with every known peer and restarts the tunnel.

Re-adding an existing client regenerates its artifacts while keeping its
address and keys.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: validateClientAddFlags,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := clientConfigFromFlags(cmd, args[0])

		if err := provision.CheckPrivilege(); err != nil {
			log.Fatal(err)
		}

		plan, err := netplan.Plan(cfg.CIDR)
		FatalOnError(err)

		FatalOnError(provision.ResolveEndpoint(cfg, provision.DetectEndpoint))

		egressIface, err := provision.DetectEgressInterface()
		FatalOnError(err)

		confPath, err := provision.AddClient(cfg, plan, egressIface, provision.LocalRunner{}, cfg.ClientName)
		FatalOnError(err)

		fmt.Printf("client '%s' added, configuration written to %s\n", cfg.ClientName, confPath)
	},
}

func clientConfigFromFlags(cmd *cobra.Command, name string) *provision.Config {
	cfg := provision.DefaultConfig()
	cfg.ClientName = name

	if endpoint, _ := cmd.Flags().GetString("endpoint"); endpoint != "" {
		cfg.Endpoint = endpoint
	} else {
		cfg.Endpoint = viper.GetString("endpoint")
	}

	cfg.Interface, _ = cmd.Flags().GetString("interface")
	cfg.ListenPort, _ = cmd.Flags().GetInt("port")
	cfg.CIDR, _ = cmd.Flags().GetString("cidr")

	return cfg
}

func validateClientAddFlags(cmd *cobra.Command, args []string) error {
	return clientConfigFromFlags(cmd, args[0]).Validate()
}

func init() {
	clientCmd.AddCommand(clientAddCmd)

	clientAddCmd.Flags().String("endpoint", "", "Address clients connect to (detected when omitted)")
	clientAddCmd.Flags().StringP("interface", "i", "wg0", "Name of the tunnel interface")
	clientAddCmd.Flags().IntP("port", "p", 51820, "UDP port the tunnel listens on")
	clientAddCmd.Flags().String("cidr", "10.8.0.0/24", "Tunnel network in CIDR notation")
}
