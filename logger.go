/*
 * logger.go, part of qhop.
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

package qhop

import (
	"fmt"
	"io"
	"log"
)

// Logger is the logging interface used by qhop. Hops are logged at Info,
// dropped candidates and hops at Warn.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// LogLevel defines severity for logger output.
type LogLevel int

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
)

// StdLogger is a leveled Logger over the standard library logger.
type StdLogger struct {
	level  LogLevel
	logger *log.Logger
}

// NewLogger returns a Logger that writes to w the messages of severity level or higher.
func NewLogger(w io.Writer, level LogLevel) *StdLogger {
	return &StdLogger{level: level, logger: log.New(w, "qhop: ", log.LstdFlags)}
}

func (l *StdLogger) logf(target LogLevel, tag, format string, args ...any) {
	if l == nil || target > l.level {
		return
	}
	l.logger.Output(3, tag+fmt.Sprintf(format, args...))
}

func (l *StdLogger) Debugf(format string, v ...any) { l.logf(LogDebug, "DEBUG ", format, v...) }
func (l *StdLogger) Infof(format string, v ...any)  { l.logf(LogInfo, "INFO ", format, v...) }
func (l *StdLogger) Warnf(format string, v ...any)  { l.logf(LogWarn, "WARN ", format, v...) }
func (l *StdLogger) Errorf(format string, v ...any) { l.logf(LogError, "ERROR ", format, v...) }

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct{}

func (n NoOpLogger) Debugf(format string, v ...any) {}
func (n NoOpLogger) Infof(format string, v ...any)  {}
func (n NoOpLogger) Warnf(format string, v ...any)  {}
func (n NoOpLogger) Errorf(format string, v ...any) {}
