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
package scope

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dso/cmd/completion"
	"jinr.ru/greenlab/go-dso/pkg/command"
	"jinr.ru/greenlab/go-dso/pkg/config"
)

const (
	TransportOptionName = "transport"
	AddressOptionName   = "address"
)

func NewCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "scope",
		Short: "Send acquisition commands to a digitizer",
	}
	cmd.PersistentFlags().StringVar(&cfg.Host.Transport, TransportOptionName, cfg.Host.Transport,
		fmt.Sprintf("One of %s/%s", config.TransportUDP, config.TransportUSB))
	cmd.RegisterFlagCompletionFunc(TransportOptionName, completion.Values(config.TransportUDP, config.TransportUSB))
	cmd.PersistentFlags().StringVar(&cfg.Host.Address, AddressOptionName, cfg.Host.Address,
		"Emulator control address (host:port)")

	cmd.AddCommand(NewVoltageCommand(cfg))
	cmd.AddCommand(NewRateCommand(cfg))
	cmd.AddCommand(NewChannelsCommand(cfg))
	cmd.AddCommand(NewCouplingCommand(cfg))
	cmd.AddCommand(NewInterfaceCommand(cfg))
	cmd.AddCommand(NewSamplingCommand(cfg, "start"))
	cmd.AddCommand(NewSamplingCommand(cfg, "stop"))
	cmd.AddCommand(NewStateCommand(cfg))
	return cmd
}

// withScope opens the scope, runs f and closes the transport
func withScope(cfg *config.Config, f func(*command.Scope) error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	scope, err := command.NewScope(cfg)
	if err != nil {
		return err
	}
	defer scope.Close()
	return f(scope)
}

func parseUint8(value string) (uint8, error) {
	v, err := strconv.ParseUint(value, 0, 8)
	return uint8(v), err
}

func NewVoltageCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "voltage CHANNEL RANGE",
		Short: "Set the voltage range code of a channel",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel, err := parseUint8(args[0])
			if err != nil {
				return err
			}
			return withScope(cfg, func(scope *command.Scope) error {
				code, err := command.ParseRange(scope.Board(), channel, args[1])
				if err != nil {
					return err
				}
				return scope.SetVoltage(channel, code)
			})
		},
	}
}

func NewRateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "rate RATE",
		Short:   "Set the sample rate by code or frequency",
		Example: "  go-dso scope rate 24\n  go-dso scope rate 500kHz",
		Args:    cobra.ExactArgs(1),
		ValidArgsFunction: completion.RateCodes(func() string {
			return cfg.Board
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cfg, func(scope *command.Scope) error {
				rate, err := command.ParseRate(scope.Board(), args[0])
				if err != nil {
					return err
				}
				return scope.SetSampleRate(rate)
			})
		},
	}
}

func NewChannelsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "channels 1|2",
		Short:     "Set the number of sampled channels",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"1", "2"},
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := parseUint8(args[0])
			if err != nil {
				return err
			}
			return withScope(cfg, func(scope *command.Scope) error {
				return scope.SetNumChannels(n)
			})
		},
	}
}

func NewCouplingCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "coupling VALUE",
		Short: "Set AC/DC coupling (bit 0 channel 0, bit 4 channel 1)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseUint8(args[0])
			if err != nil {
				return err
			}
			return withScope(cfg, func(scope *command.Scope) error {
				return scope.SetCoupling(value)
			})
		},
	}
}

func NewInterfaceCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:       "iface bulk|iso",
		Short:     "Select the transfer mode of interface 0",
		Args:      cobra.ExactValidArgs(1),
		ValidArgs: []string{"bulk", "iso"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var alt uint8
			if args[0] == "iso" {
				alt = 1
			}
			return withScope(cfg, func(scope *command.Scope) error {
				return scope.SelectInterface(alt)
			})
		},
	}
}

func NewSamplingCommand(cfg *config.Config, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("%s sampling", action),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScope(cfg, func(scope *command.Scope) error {
				if action == "start" {
					return scope.StartSampling()
				}
				return scope.StopSampling()
			})
		},
	}
}

// NewStateCommand reads the state through the emulator API
func NewStateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the emulated device state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := command.NewApiClient(cfg).State()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "board:         %s\n", snapshot.Board)
			fmt.Fprintf(out, "link speed:    %s\n", snapshot.LinkSpeed)
			fmt.Fprintf(out, "transfer mode: %s\n", snapshot.TransferMode)
			fmt.Fprintf(out, "sampling:      %s\n", snapshot.Sampling)
			fmt.Fprintf(out, "channels:      %d\n", snapshot.Channels)
			fmt.Fprintf(out, "voltage:       %v\n", snapshot.Voltage)
			fmt.Fprintf(out, "sample rate:   %d (%s)\n", snapshot.SampleRate, snapshot.Frequency)
			fmt.Fprintf(out, "coupling:      0x%02x\n", snapshot.Coupling)
			if snapshot.LED != "" {
				fmt.Fprintf(out, "led:           %s\n", snapshot.LED)
			}
			return nil
		},
	}
}
