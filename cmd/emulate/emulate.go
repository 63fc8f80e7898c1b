/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/
package emulate

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dso/cmd/completion"
	"jinr.ru/greenlab/go-dso/pkg/command"
	"jinr.ru/greenlab/go-dso/pkg/config"
	"jinr.ru/greenlab/go-dso/pkg/device"
)

const (
	BoardOptionName     = "board"
	IPOptionName        = "ip"
	PortOptionName      = "port"
	ApiPortOptionName   = "api-port"
	LinkSpeedOptionName = "link-speed"
	StrictOptionName    = "strict-vendor-errors"
	DBOptionName        = "db"
)

var linkSpeeds = []string{"full", "high"}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Emulate a digitizer",
	}
	cmd.AddCommand(NewStartCommand())
	cmd.AddCommand(NewLinkCommand())
	return cmd
}

func NewStartCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the emulator with its control port and API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if net.ParseIP(cfg.Emulator.IP) == nil {
				return config.ErrInvalidConfig{What: fmt.Sprintf("IP %q", cfg.Emulator.IP)}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return command.StartEmulator(cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Board, BoardOptionName, cfg.Board, fmt.Sprintf("Board profile. One of %v", device.BoardNames()))
	cmd.Flags().StringVar(&cfg.Emulator.IP, IPOptionName, cfg.Emulator.IP, "IP to bind")
	cmd.Flags().IntVar(&cfg.Emulator.ControlPort, PortOptionName, cfg.Emulator.ControlPort, "UDP control port")
	cmd.Flags().IntVar(&cfg.Emulator.ApiPort, ApiPortOptionName, cfg.Emulator.ApiPort, "HTTP API port")
	cmd.Flags().StringVar(&cfg.LinkSpeed, LinkSpeedOptionName, cfg.LinkSpeed, "Initial link speed. One of full/high")
	cmd.Flags().BoolVar(&cfg.StrictVendorErrors, StrictOptionName, cfg.StrictVendorErrors, "Stall vendor requests that fail")
	cmd.Flags().StringVar(&cfg.DBPath, DBOptionName, cfg.DBPath, "State database path")
	cmd.RegisterFlagCompletionFunc(BoardOptionName, completion.BoardNames)
	cmd.RegisterFlagCompletionFunc(LinkSpeedOptionName, completion.Values(linkSpeeds...))
	return cmd
}

// NewLinkCommand makes a running emulator reconnect at another link speed
func NewLinkCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:       "link full|high",
		Short:     "Renegotiate the link speed of a running emulator",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: linkSpeeds,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := command.NewApiClient(cfg).SetLinkSpeed(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: link speed %s\n", cfg.Name, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.Emulator.IP, IPOptionName, cfg.Emulator.IP, "Emulator IP")
	cmd.Flags().IntVar(&cfg.Emulator.ApiPort, ApiPortOptionName, cfg.Emulator.ApiPort, "Emulator HTTP API port")
	return cmd
}
