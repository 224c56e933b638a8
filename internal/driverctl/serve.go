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
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sabouaram/httpdriver/ioutils/fileDescriptor"
)

func addServeCommand(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the configured drivers and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := loadConfig(v)
			if err != nil {
				return err
			}
			if len(fc.Drivers) == 0 {
				return ErrorNoDrivers.Error(nil)
			}

			if fc.MaxOpenFiles > 0 {
				if _, _, err := fileDescriptor.SystemFileDescriptor(fc.MaxOpenFiles); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "driverctl: raise open-file limit to %d: %v\n", fc.MaxOpenFiles, err)
				}
			}

			reg, listeners, err := buildRegistry(fc)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := reg.Start(ctx); err != nil {
				return fmt.Errorf("start: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "driverctl: running %d driver(s), press ctrl-c to stop\n", len(fc.Drivers))

			<-ctx.Done()

			stopErr := reg.Stop(context.Background())
			if err := listeners.Close(); err != nil && stopErr == nil {
				stopErr = fmt.Errorf("close listeners: %w", err)
			}
			return stopErr
		},
	}
	root.AddCommand(cmd)
}
