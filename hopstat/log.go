/*
 * log.go, part of qhop.
 *
 * Copyright 2025 Raul Mera A. (rmeraaatacademicosdotutadotcl)
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package hopstat

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rmera/qhop"
)

// Record is one line of a hop log: an applied hop and the step in which it
// happened.
type Record struct {
	Step int64 `json:"step"`
	qhop.Hop
}

// LogW writes the applied hops of each cycle as JSON lines. If the file name
// ends in .zst (in any case), the log is zstd-compressed.
type LogW struct {
	f       *os.File
	z       *zstd.Encoder
	enc     *json.Encoder
	name    string
	written int
}

// NewLog creates the log file name.
func NewLog(name string) (*LogW, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("hopstat: NewLog: %w", err)
	}
	L := &LogW{f: f, name: name}
	var w io.Writer = f
	if compressed(name) {
		L.z, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("hopstat: NewLog: %w", err)
		}
		w = L.z
	}
	L.enc = json.NewEncoder(w)
	return L, nil
}

// Write writes the hops applied in R.
func (L *LogW) Write(R *qhop.Report) error {
	if R == nil {
		return nil
	}
	for _, h := range R.Applied {
		if err := L.enc.Encode(Record{Step: R.Step, Hop: h}); err != nil {
			return fmt.Errorf("hopstat: writing %s: %w", L.name, err)
		}
		L.written++
	}
	return nil
}

// Len returns the number of hops written.
func (L *LogW) Len() int { return L.written }

// Close flushes and closes the log. The LogW can't be used afterwards.
func (L *LogW) Close() error {
	var zerr error
	if L.z != nil {
		zerr = L.z.Close()
	}
	return errors.Join(zerr, L.f.Close())
}

// ReadLog reads every record of a log written by LogW.
func ReadLog(name string) ([]Record, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("hopstat: ReadLog: %w", err)
	}
	defer f.Close()
	var r io.Reader = f
	if compressed(name) {
		z, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("hopstat: ReadLog: %w", err)
		}
		defer z.Close()
		r = z
	}
	return readRecords(r)
}

func readRecords(r io.Reader) ([]Record, error) {
	var ret []Record
	dec := json.NewDecoder(bufio.NewReader(r))
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return ret, nil
		}
		if err != nil {
			return ret, fmt.Errorf("hopstat: record %d: %w", len(ret), err)
		}
		ret = append(ret, rec)
	}
}

func compressed(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zst")
}
