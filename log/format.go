// Copyright 2023 The ledgercore Authors
// This file is part of the ledgercore library.
//
// The ledgercore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ledgercore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ledgercore library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

const termTimeFormat = "01-02|15:04:05.000"

func writeTimeTermFormat(buf *bytes.Buffer, t time.Time) {
	buf.Write(t.AppendFormat(nil, termTimeFormat))
}

// formatLogfmtValue mirrors the teacher's log value formatter: strings get
// quoted only when they contain whitespace or control characters, numbers
// are rendered plainly, and everything else falls back to %+v.
func formatLogfmtValue(value any) string {
	if value == nil {
		return "<nil>"
	}
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	case error:
		return quoteIfNeeded(v.Error())
	case fmt.Stringer:
		return quoteIfNeeded(v.String())
	case string:
		return quoteIfNeeded(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%f", v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return quoteIfNeeded(fmt.Sprintf("%+v", v))
	}
}

func quoteIfNeeded(s string) string {
	needsQuoting := false
	for _, r := range s {
		if r == ' ' || r == '"' || r == '=' || r < 0x20 {
			needsQuoting = true
			break
		}
	}
	if !needsQuoting && s != "" {
		return s
	}
	return strconv.Quote(s)
}

// attrString renders a single slog.Attr as "key=value".
func attrString(a slog.Attr) string {
	return a.Key + "=" + formatLogfmtValue(a.Value.Any())
}
