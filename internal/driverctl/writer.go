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
	"time"

	"github.com/spf13/cobra"

	liberr "github.com/sabouaram/httpdriver/errors"
	liblog "github.com/sabouaram/httpdriver/logger"
	"github.com/sabouaram/httpdriver/sock"
	"github.com/sabouaram/httpdriver/writer"
)

// cliReleaser prints one line per completed task instead of re-arming or
// closing a real connection; a one-shot CLI invocation has nothing to
// hand the Sock back to once WriterLoop is done with it.
type cliReleaser struct {
	out *cobra.Command
}

func (r cliReleaser) Release(s *sock.Sock, reason liberr.CodeError, keep bool) {
	fmt.Fprintf(r.out.OutOrStdout(), "done fd=%d reason=%d keep=%t\n", s.Fd, reason, keep)
}

func addWriterCommands(root *cobra.Command) {
	parent := &cobra.Command{
		Use:   "writer",
		Short: "Submit responses through a WriterLoop and inspect its queue",
	}

	var (
		outPath   string
		rateLimit int64
		keep      bool
	)
	parent.PersistentFlags().StringVar(&outPath, "out", "", "output file (default: stdout)")
	parent.PersistentFlags().Int64Var(&rateLimit, "ratelimit", 0, "KB/s, 0 = unlimited")
	parent.PersistentFlags().BoolVar(&keep, "keep", false, "mark the task keep-alive eligible")

	submitCmd := &cobra.Command{
		Use:   "submit <bytes>",
		Short: "Enqueue an in-memory response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, outPath, rateLimit, keep, [][]byte{[]byte(args[0])})
		},
	}
	parent.AddCommand(submitCmd)

	var offset, size int64
	var headers bool
	submitFileCmd := &cobra.Command{
		Use:   "submitfile <path>",
		Short: "Enqueue a spooled-file response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmitFile(cmd, outPath, rateLimit, keep, args[0], offset, size)
		},
	}
	submitFileCmd.Flags().Int64Var(&offset, "offset", 0, "starting offset within the file")
	submitFileCmd.Flags().Int64Var(&size, "size", 0, "bytes to send, 0 = whole file")
	submitFileCmd.Flags().BoolVar(&headers, "headers", false, "unused placeholder for a leading header block")
	parent.AddCommand(submitFileCmd)

	submitFilesCmd := &cobra.Command{
		Use:   "submitfiles <path...>",
		Short: "Enqueue a multi-segment file-vector response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmitFiles(cmd, outPath, rateLimit, keep, args)
		},
	}
	parent.AddCommand(submitFilesCmd)

	var sizeDriver, streamingDriver string
	sizeCmd := &cobra.Command{
		Use:   "size [N]",
		Short: "Query or set a driver's configured writer queue size",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writerLimit(cmd, sizeDriver, args, func(c *driverSpec, n int) { c.WriterSize = n },
				func(c driverSpec) int { return c.WriterSize })
		},
	}
	sizeCmd.Flags().StringVar(&sizeDriver, "driver", "", "driver name (default: first configured)")
	parent.AddCommand(sizeCmd)

	streamingCmd := &cobra.Command{
		Use:   "streaming [true|false]",
		Short: "Query or set a driver's writer streaming flag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writerStreaming(cmd, streamingDriver, args)
		},
	}
	streamingCmd.Flags().StringVar(&streamingDriver, "driver", "", "driver name (default: first configured)")
	parent.AddCommand(streamingCmd)

	root.AddCommand(parent)
}

// writerLimit reports driverName's current WriterSize, or the value a
// `-driver D N` invocation would set it to. Configuration is reloaded
// fresh each invocation, so a set is only ever echoed back, never
// persisted — there is no long-running registry for a one-shot CLI
// process to mutate.
func writerLimit(cmd *cobra.Command, driverName string, args []string, set func(*driverSpec, int), get func(driverSpec) int) error {
	fc, err := loadConfig(v)
	if err != nil {
		return err
	}
	spec, err := findSpec(fc, driverName)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		n, err := parseIntArg(args[0])
		if err != nil {
			return err
		}
		set(spec, n)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: writer size set to %d (this invocation only)\n", spec.Name, n)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), get(*spec))
	return nil
}

func writerStreaming(cmd *cobra.Command, driverName string, args []string) error {
	fc, err := loadConfig(v)
	if err != nil {
		return err
	}
	spec, err := findSpec(fc, driverName)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		b := args[0] == "true"
		spec.WriterStreaming = b
		fmt.Fprintf(cmd.OutOrStdout(), "%s: writer streaming set to %t (this invocation only)\n", spec.Name, b)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), spec.WriterStreaming)
	return nil
}

func findSpec(fc fileConfig, driverName string) (*driverSpec, error) {
	if len(fc.Drivers) == 0 {
		return nil, ErrorNoDrivers.Error(nil)
	}
	if driverName == "" {
		return &fc.Drivers[0], nil
	}
	for i := range fc.Drivers {
		if fc.Drivers[i].Name == driverName {
			return &fc.Drivers[i], nil
		}
	}
	return nil, ErrorUnknownDriver.Error(nil)
}

func parseIntArg(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}

func openOutput(path string) (*os.File, error) {
	if path == "" {
		return os.Stdout, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

// newCLIWriter builds a single-thread Writer sending to out's fd, using
// the same raw-syscall Send/ReadSpool pair the TCP listener uses for a
// real connection.
func newCLIWriter(cmd *cobra.Command, out *os.File) writer.Writer {
	l := newTCPListener()
	w := writer.New(32*1024, l.SendVec, l.ReadSpool, cliReleaser{out: cmd}, 0, 1, writer.NewRateTable(1), nil)
	log := liblog.New(context.Background())
	w.SetLogger(func() liblog.Logger { return log })
	return w
}

func runSubmit(cmd *cobra.Command, outPath string, rateLimit int64, keep bool, bufs [][]byte) error {
	out, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer closeIfNotStd(out)

	w := newCLIWriter(cmd, out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		return err
	}

	s := &sock.Sock{Fd: int(out.Fd())}
	w.SubmitMemory(s, "cli", bufs, rateLimit, keep)

	return drainAndStop(w, cancel)
}

func runSubmitFile(cmd *cobra.Command, outPath string, rateLimit int64, keep bool, path string, offset, size int64) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if size == 0 {
		fi, err := in.Stat()
		if err != nil {
			return err
		}
		size = fi.Size() - offset
	}

	out, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer closeIfNotStd(out)

	w := newCLIWriter(cmd, out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		return err
	}

	s := &sock.Sock{Fd: int(out.Fd())}
	w.SubmitFile(s, "cli", int(in.Fd()), size, rateLimit, keep)

	return drainAndStop(w, cancel)
}

func runSubmitFiles(cmd *cobra.Command, outPath string, rateLimit int64, keep bool, paths []string) error {
	out, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer closeIfNotStd(out)

	var vec []writer.FileRange
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, p := range paths {
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		opened = append(opened, in)
		fi, err := in.Stat()
		if err != nil {
			return err
		}
		vec = append(vec, writer.FileRange{Fd: int(in.Fd()), Offset: 0, Length: fi.Size()})
	}

	w := newCLIWriter(cmd, out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		return err
	}

	s := &sock.Sock{Fd: int(out.Fd())}
	w.SubmitFileVec(s, "cli", vec, rateLimit, keep)

	return drainAndStop(w, cancel)
}

// drainAndStop polls Len until the submitted task completes, then stops
// the loop; a one-shot CLI invocation has no event loop of its own to
// drive this from.
func drainAndStop(w writer.Writer, cancel context.CancelFunc) error {
	deadline := time.Now().Add(30 * time.Second)
	for w.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	return w.Stop(context.Background())
}

func closeIfNotStd(f *os.File) {
	if f != os.Stdout && f != os.Stderr {
		_ = f.Close()
	}
}
