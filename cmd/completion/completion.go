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

package completion

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dso/pkg/device"
)

const (
	completionExample = `
Save bash completion to a file
# go-dso completion > $HOME/.go-dso_completions

Apply completions to the current bash instance
# source <(go-dso completion)

Load zsh completion
# go-dso completion zsh > "${fpath[1]}/_go-dso"
`
)

var shells = []string{"bash", "zsh", "fish", "powershell"}

// NewCommand creates a cobra command object for generating completion scripts
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:       fmt.Sprintf("completion [%s]", strings.Join(shells, "|")),
		Short:     "Generate completion script, bash by default",
		Example:   completionExample,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: shells,
		RunE: func(cmd *cobra.Command, args []string) error {
			shell := "bash"
			if len(args) > 0 {
				shell = args[0]
			}
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch shell {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletion(out)
			}
			return fmt.Errorf("unknown shell %q, must be one of %v", shell, shells)
		},
	}
	return cmd
}

// Values completes a positional argument or flag from a fixed list
func Values(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func BoardNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return device.BoardNames(), cobra.ShellCompDirectiveNoFileComp
}

// RateCodes completes the first argument with the rate codes of a board,
// each described by its sample frequency
func RateCodes(board func() string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		b, err := device.NewBoard(board())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		var codes []string
		for _, profile := range b.Profiles() {
			codes = append(codes, fmt.Sprintf("%d\t%s", profile.Rate, profile.Frequency()))
		}
		return codes, cobra.ShellCompDirectiveNoFileComp
	}
}
