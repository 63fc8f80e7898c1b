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
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dso/cmd/completion"
	"jinr.ru/greenlab/go-dso/pkg/config"
	"jinr.ru/greenlab/go-dso/pkg/device"
)

const (
	BoardOptionName     = "board"
	NameOptionName      = "name"
	OverwriteOptionName = "overwrite"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewShowCommand())
	return cmd
}

func NewInitCommand() *cobra.Command {
	var board, name string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.NewDefaultConfig()
			if _, err := device.NewBoard(board); err != nil {
				return err
			}
			cfg.Board = board
			cfg.Name = name
			if err := cfg.Persist(overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", cfg.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&board, BoardOptionName, config.DefaultBoard, fmt.Sprintf("Board profile. One of %v", device.BoardNames()))
	cmd.Flags().StringVar(&name, NameOptionName, config.DefaultName, "Device name")
	cmd.Flags().BoolVar(&overwrite, OverwriteOptionName, false, "Overwrite existing config file")
	cmd.RegisterFlagCompletionFunc(BoardOptionName, completion.BoardNames)
	return cmd
}

func NewShowCommand() *cobra.Command {
	cfg := config.NewDefaultConfig()
	cfg.Load()
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", cfg.Path(), cfg)
			return nil
		},
	}
	return cmd
}
