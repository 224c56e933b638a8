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

// Package driverconfig declares the driver's tuning knobs as a validated,
// clonable struct, the same struct-tag-plus-Clone shape httpserver.ServerConfig
// uses for net/http.Server.
package driverconfig

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	liberr "github.com/sabouaram/httpdriver/errors"
)

// Config is one Driver's tuning (Configuration options).
type Config struct {
	Name string `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`

	BufSize    int `mapstructure:"bufsize" json:"bufsize" yaml:"bufsize" toml:"bufsize" validate:"omitempty,min=512"`
	MaxInput   int `mapstructure:"maxinput" json:"maxinput" yaml:"maxinput" toml:"maxinput"`
	MaxUpload  int `mapstructure:"maxupload" json:"maxupload" yaml:"maxupload" toml:"maxupload"`
	ReadAhead  int `mapstructure:"readahead" json:"readahead" yaml:"readahead" toml:"readahead"`
	MaxLine    int `mapstructure:"maxline" json:"maxline" yaml:"maxline" toml:"maxline" validate:"omitempty,min=64"`
	MaxHeaders int `mapstructure:"maxheaders" json:"maxheaders" yaml:"maxheaders" toml:"maxheaders" validate:"omitempty,min=1"`

	MaxQueueSize int `mapstructure:"maxqueuesize" json:"maxqueuesize" yaml:"maxqueuesize" toml:"maxqueuesize" validate:"omitempty,min=1"`

	SendWait  time.Duration `mapstructure:"sendwait" json:"sendwait" yaml:"sendwait" toml:"sendwait"`
	RecvWait  time.Duration `mapstructure:"recvwait" json:"recvwait" yaml:"recvwait" toml:"recvwait"`
	CloseWait time.Duration `mapstructure:"closewait" json:"closewait" yaml:"closewait" toml:"closewait"`
	KeepWait  time.Duration `mapstructure:"keepwait" json:"keepwait" yaml:"keepwait" toml:"keepwait"`

	Backlog       int  `mapstructure:"backlog" json:"backlog" yaml:"backlog" toml:"backlog"`
	DriverThreads int  `mapstructure:"driverthreads" json:"driverthreads" yaml:"driverthreads" toml:"driverthreads" validate:"omitempty,min=1"`
	ReusePort     bool `mapstructure:"reuseport" json:"reuseport" yaml:"reuseport" toml:"reuseport"`
	AcceptSize    int  `mapstructure:"acceptsize" json:"acceptsize" yaml:"acceptsize" toml:"acceptsize" validate:"omitempty,min=1"`
	SockAcceptLog bool `mapstructure:"sockacceptlog" json:"sockacceptlog" yaml:"sockacceptlog" toml:"sockacceptlog"`

	KeepAliveMaxUploadSize   int `mapstructure:"keepalivemaxuploadsize" json:"keepalivemaxuploadsize" yaml:"keepalivemaxuploadsize" toml:"keepalivemaxuploadsize"`
	KeepAliveMaxDownloadSize int `mapstructure:"keepalivemaxdownloadsize" json:"keepalivemaxdownloadsize" yaml:"keepalivemaxdownloadsize" toml:"keepalivemaxdownloadsize"`

	UploadPath string `mapstructure:"uploadpath" json:"uploadpath" yaml:"uploadpath" toml:"uploadpath" validate:"omitempty,dirpath"`

	SpoolerThreads int `mapstructure:"spoolerthreads" json:"spoolerthreads" yaml:"spoolerthreads" toml:"spoolerthreads" validate:"omitempty,min=1"`
	WriterThreads  int `mapstructure:"writerthreads" json:"writerthreads" yaml:"writerthreads" toml:"writerthreads" validate:"omitempty,min=1"`
	WriterSize     int `mapstructure:"writersize" json:"writersize" yaml:"writersize" toml:"writersize"`
	WriterBufSize  int `mapstructure:"writerbufsize" json:"writerbufsize" yaml:"writerbufsize" toml:"writerbufsize" validate:"omitempty,min=512"`

	WriterRateLimit  int64 `mapstructure:"writerratelimit" json:"writerratelimit" yaml:"writerratelimit" toml:"writerratelimit"`
	WriterStreaming  bool  `mapstructure:"writerstreaming" json:"writerstreaming" yaml:"writerstreaming" toml:"writerstreaming"`

	VHostCertificates map[string]string `mapstructure:"vhostcertificates" json:"vhostcertificates" yaml:"vhostcertificates" toml:"vhostcertificates"`

	TrustedProxies []string `mapstructure:"trustedproxies" json:"trustedproxies" yaml:"trustedproxies" toml:"trustedproxies" validate:"omitempty,dive,cidr|ip"`
}

// Default returns the process-wide tunable defaults (grounded on
// NaviServer's nsconf.h global tunables) merged under Clone by any driver
// that omits a given field.
func Default() Config {
	return Config{
		BufSize:        16 * 1024,
		MaxLine:        8 * 1024,
		MaxHeaders:     128,
		MaxQueueSize:   1024,
		SendWait:       30 * time.Second,
		RecvWait:       30 * time.Second,
		CloseWait:      5 * time.Second,
		KeepWait:       5 * time.Second,
		Backlog:        512,
		DriverThreads:  1,
		AcceptSize:     10,
		SpoolerThreads: 1,
		WriterThreads:  1,
		WriterBufSize:  16 * 1024,
	}
}

// Clone merges non-zero fields of c over Default(), a value-receiver,
// defaulted copy in the same shape as ServerConfig.Clone().
func (c Config) Clone() Config {
	d := Default()

	if c.Name != "" {
		d.Name = c.Name
	}
	if c.BufSize != 0 {
		d.BufSize = c.BufSize
	}
	if c.MaxInput != 0 {
		d.MaxInput = c.MaxInput
	}
	if c.MaxUpload != 0 {
		d.MaxUpload = c.MaxUpload
	}
	if c.ReadAhead != 0 {
		d.ReadAhead = c.ReadAhead
	}
	if c.MaxLine != 0 {
		d.MaxLine = c.MaxLine
	}
	if c.MaxHeaders != 0 {
		d.MaxHeaders = c.MaxHeaders
	}
	if c.MaxQueueSize != 0 {
		d.MaxQueueSize = c.MaxQueueSize
	}
	if c.SendWait != 0 {
		d.SendWait = c.SendWait
	}
	if c.RecvWait != 0 {
		d.RecvWait = c.RecvWait
	}
	if c.CloseWait != 0 {
		d.CloseWait = c.CloseWait
	}
	if c.KeepWait != 0 {
		d.KeepWait = c.KeepWait
	}
	if c.Backlog != 0 {
		d.Backlog = c.Backlog
	}
	if c.DriverThreads != 0 {
		d.DriverThreads = c.DriverThreads
	}
	d.ReusePort = c.ReusePort
	if c.AcceptSize != 0 {
		d.AcceptSize = c.AcceptSize
	}
	d.SockAcceptLog = c.SockAcceptLog
	if c.KeepAliveMaxUploadSize != 0 {
		d.KeepAliveMaxUploadSize = c.KeepAliveMaxUploadSize
	}
	if c.KeepAliveMaxDownloadSize != 0 {
		d.KeepAliveMaxDownloadSize = c.KeepAliveMaxDownloadSize
	}
	if c.UploadPath != "" {
		d.UploadPath = c.UploadPath
	}
	if c.SpoolerThreads != 0 {
		d.SpoolerThreads = c.SpoolerThreads
	}
	if c.WriterThreads != 0 {
		d.WriterThreads = c.WriterThreads
	}
	if c.WriterSize != 0 {
		d.WriterSize = c.WriterSize
	}
	if c.WriterBufSize != 0 {
		d.WriterBufSize = c.WriterBufSize
	}
	if c.WriterRateLimit != 0 {
		d.WriterRateLimit = c.WriterRateLimit
	}
	d.WriterStreaming = c.WriterStreaming
	if len(c.VHostCertificates) > 0 {
		d.VHostCertificates = c.VHostCertificates
	}
	if len(c.TrustedProxies) > 0 {
		d.TrustedProxies = c.TrustedProxies
	}

	return d
}

// Validate struct-tag validates c, returning a typed Error in the same
// shape as ServerConfig.Validate().
func (c Config) Validate() liberr.Error {
	val := validator.New()
	err := val.Struct(c)

	if err == nil {
		return nil
	}

	if e, ok := err.(*validator.InvalidValidationError); ok {
		return ErrorConfigValidate.Error(e)
	}

	out := ErrorConfigValidate.Error(nil)

	for _, e := range err.(validator.ValidationErrors) {
		//nolint goerr113
		out.Add(fmt.Errorf("config field '%s' is not validated by constraint '%s'", e.Field(), e.ActualTag()))
	}

	if out.HasParent() {
		return out
	}

	return nil
}
