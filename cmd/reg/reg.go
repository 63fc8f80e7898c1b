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
package reg

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dso/pkg/command"
	"jinr.ru/greenlab/go-dso/pkg/config"
)

const (
	AddrOptionName = "addr"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reg",
		Short: "Inspect emulator registers",
	}
	cmd.AddCommand(NewReadCommand())
	cmd.AddCommand(NewProgramCommand())
	return cmd
}

func NewReadCommand() *cobra.Command {
	var addr string
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read value from register",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := command.NewApiClient(cfg)
			out := cmd.OutOrStdout()
			if addr != "" {
				value, err := apiClient.RegRead(addr)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Register state: %s = %s\n", addr, value)
				return nil
			}
			regs, err := apiClient.RegReadAll()
			if err != nil {
				return err
			}
			var keys []string
			for key := range regs {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(out, "Register state: %s = %s\n", key, regs[key])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, AddrOptionName, "", "Register address (hexadecimal, e.g. 0xe601)")
	return cmd
}

func NewProgramCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "program",
		Short: "Dump the sequencer program memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			program, err := command.NewApiClient(cfg).Program()
			if err != nil {
				return err
			}
			for i := 0; i < len(program); i += 32 {
				end := i + 32
				if end > len(program) {
					end = len(program)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%02x: %s\n", i/2, program[i:end])
			}
			return nil
		},
	}
	return cmd
}
