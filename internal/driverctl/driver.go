/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package driverctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sabouaram/httpdriver/registry"
)

func addDriverCommands(root *cobra.Command) {
	parent := &cobra.Command{
		Use:   "driver",
		Short: "Inspect the drivers declared in the loaded configuration",
	}

	parent.AddCommand(&cobra.Command{
		Use:   "names",
		Short: "List configured driver names",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadedRegistry()
			if err != nil {
				return err
			}
			for _, name := range reg.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "threads [name]",
		Short: "Print a driver's configured thread count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := loadedRegistry()
			if err != nil {
				return err
			}
			d, ok := reg.Get(args[0])
			if !ok {
				return ErrorUnknownDriver.Error(nil)
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.Threads())
			return nil
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Print every driver's running state and uptime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printInfo(cmd)
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print every driver's request counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printInfo(cmd)
		},
	})

	root.AddCommand(parent)
}

func printInfo(cmd *cobra.Command) error {
	reg, err := loadedRegistry()
	if err != nil {
		return err
	}
	for _, info := range reg.Info() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\trunning=%t\tuptime=%s\tthreads=%d\treceived=%d\tspooled=%d\tpartial=%d\terrors=%d\n",
			info.Name, info.Running, info.Uptime, info.Threads, info.Received, info.Spooled, info.Partial, info.Errors)
	}
	return nil
}

// loadedRegistry builds a Registry from the bound configuration for a
// single CLI invocation's introspection commands; it is never Started, so
// `driver info` before `serve` reports every driver as not running.
func loadedRegistry() (registry.Registry, error) {
	fc, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	reg, _, err := buildRegistry(fc)
	return reg, err
}
