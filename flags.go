// LRPT - A decoder for Meteor-M LRPT soft symbol streams.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/bemasher/lrpt/csv"
	"github.com/bemasher/lrpt/parse"
)

var configFilename = flag.String("config", "", "yaml file of flag defaults, keyed by flag name")

var inputFilename = flag.StringP("input", "i", "-", "soft symbol capture, - for stdin, zstd and gzip are decompressed")

var blockSize = flag.Int("blocksize", 0, "input block size in soft symbols, 0 for one frame")

var msgType = flag.String("msgtype", "all", "packet parsers to use: msumr, telemetry or all")

var dualBasis = flag.Bool("dualbasis", false, "reed-solomon symbols are in the berlekamp dual basis")

var timeLimit = flag.Duration("duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")
var statusInterval = flag.Duration("status", 30*time.Second, "interval between status log lines, 0 to disable")

var apidFilter APIDFilter

var encoder Encoder
var format = flag.String("format", "plain", "decoded message output format: plain, csv, json, or xml")
var showOffset = flag.Bool("showoffset", false, "include stream offset and vcdu counter in plain output")

var metricsAddr = flag.String("metrics", "", "listen address for prometheus metrics, empty to disable")

var logLevel = flag.String("loglevel", "info", "log level: debug, info, warn or error")
var logFormat = flag.String("logformat", "text", "log format: text or json")

var single = flag.Bool("single", false, "one shot execution, exit after the first message passing the filters")

var version = flag.Bool("version", false, "display build date and commit hash")

func RegisterFlags() {
	apidFilter = APIDFilter{make(UintMap)}

	flag.Var(apidFilter, "filterapid", "display only messages matching an apid in a comma-separated list of apids.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
}

func EnvOverride() {
	flag.VisitAll(func(f *flag.Flag) {
		envName := "LRPT_" + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" {
			return
		}

		fields := logrus.Fields{"env": envName, "flag": f.Name, "value": flagValue}
		if err := flag.Set(f.Name, flagValue); err != nil {
			logrus.WithFields(fields).WithError(err).Warn("environment variable failed to override flag")
		} else {
			logrus.WithFields(fields).Info("environment variable overrides flag")
		}
	})
}

func HandleFlags() error {
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		return errors.Wrap(err, "loglevel")
	}
	logrus.SetLevel(level)

	switch strings.ToLower(*logFormat) {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return errors.Errorf("invalid log format: %q", *logFormat)
	}

	*format = strings.ToLower(*format)
	switch *format {
	case "plain":
		encoder = PlainEncoder{os.Stdout, *showOffset}
	case "csv":
		encoder = csv.NewEncoder(os.Stdout)
	case "json":
		encoder = json.NewEncoder(os.Stdout)
	case "xml":
		encoder = xml.NewEncoder(os.Stdout)
	default:
		return errors.Errorf("invalid format: %q", *format)
	}

	return nil
}

// Parsers returns the parser names selected by msgtype.
func Parsers() []string {
	if strings.TrimSpace(*msgType) == "all" {
		return parse.Names()
	}

	var names []string
	for _, name := range strings.Split(*msgType, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// JSON, XML and CSV all implement this interface so we can simplify log
// output formatting.
type Encoder interface {
	Encode(interface{}) error
}

type UintMap map[uint]bool

func (m UintMap) String() (s string) {
	var values []string
	for k := range m {
		values = append(values, strconv.FormatUint(uint64(k), 10))
	}
	return strings.Join(values, ",")
}

func (m UintMap) Set(value string) error {
	values := strings.Split(value, ",")

	for _, v := range values {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return err
		}

		m[uint(n)] = true
	}

	return nil
}

func (m UintMap) Type() string {
	return "uints"
}

type APIDFilter struct {
	UintMap
}

func (m APIDFilter) Filter(msg parse.Message) bool {
	return m.UintMap[uint(msg.APID())]
}

type PlainEncoder struct {
	w      io.Writer
	offset bool
}

func (pe PlainEncoder) Encode(msg interface{}) (err error) {
	if m, ok := msg.(parse.LogMessage); ok && !pe.offset {
		_, err = fmt.Fprintln(pe.w, m.StringNoOffset())
	} else {
		_, err = fmt.Fprintln(pe.w, msg)
	}
	return
}
