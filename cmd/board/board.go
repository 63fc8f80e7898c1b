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
package board

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jinr.ru/greenlab/go-dso/pkg/device"
	"jinr.ru/greenlab/go-dso/pkg/device/ifc"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Board profiles",
	}
	cmd.AddCommand(NewListCommand())
	return cmd
}

func NewListCommand() *cobra.Command {
	var rates bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported boards",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			for _, name := range device.BoardNames() {
				b, err := device.NewBoard(name)
				if err != nil {
					return err
				}
				usb := b.USB()
				_, coupling := b.(ifc.CouplingBoard)
				fmt.Fprintf(w, "%s\t%04x:%04x\t%s %s\tranges %v\tcoupling %t\n",
					name, usb.VendorID, usb.ProductID, usb.Manufacturer, usb.Product, b.Ranges(), coupling)
				if !rates {
					continue
				}
				for _, p := range b.Profiles() {
					fmt.Fprintf(w, "\trate %d\t%s\n", p.Rate, p.Frequency())
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rates, "rates", false, "Print the sample rate tables")
	return cmd
}
