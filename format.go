// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package tracerecorder

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

// Protocol names which wire format a formatting operation belongs to,
// since %s handle width and integer argument widths differ between them.
type Protocol uint8

const (
	ProtocolSnapshot Protocol = iota
	ProtocolStreaming
)

// symbolLookup resolves a %s argument's object handle to its symbol text.
// Both the snapshot symbol table and the streaming entry table satisfy
// this via small adapter closures built at the call site.
type symbolLookup func(handle ObjectHandle) (string, bool)

// subSpecifier tracks the active length modifier while scanning a format
// string, mirroring the printf mini-grammar's %h/%b/%l prefixes.
type subSpecifier uint8

const (
	subNone subSpecifier = iota
	subLong
	subShort
	subOctet
)

// FormatSymbolString renders a printf-style format string against a flat
// little/big-endian argument byte buffer (per endianness), resolving %s
// handles via lookup. Unsupported specifiers degrade gracefully: the
// helper logs a warning and returns the raw format string unmodified and
// an empty argument list rather than failing the whole call. A %s whose
// handle fails to resolve in the symbol table is a hard error and
// propagates (wrapping ErrFormattedString / ErrFormatSymbolLookup).
func FormatSymbolString(logger *log.Helper, proto Protocol, order binary.ByteOrder, format string, args []byte, lookup symbolLookup) (string, []Argument, error) {
	var out strings.Builder
	var decoded []Argument
	pos := 0

	read := func(n int) ([]byte, bool) {
		if pos+n > len(args) {
			return nil, false
		}
		b := args[pos : pos+n]
		pos += n
		return b, true
	}

	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '%' {
			out.WriteRune(c)
			continue
		}
		i++
		if i >= len(runes) {
			break
		}
		if runes[i] == '%' {
			out.WriteByte('%')
			continue
		}

		sub := subNone
		// Skip width/padding digits, '#' and '.' flags.
		for i < len(runes) && (runes[i] == '0' || runes[i] == '#' || runes[i] == '.' || (runes[i] >= '1' && runes[i] <= '9')) {
			i++
		}
		for i < len(runes) {
			switch runes[i] {
			case 'h':
				sub = subShort
				i++
				continue
			case 'b':
				sub = subOctet
				i++
				continue
			case 'l':
				sub = subLong
				i++
				continue
			}
			break
		}
		if i >= len(runes) {
			break
		}
		verb := runes[i]

		switch verb {
		case 'd', 'u', 'x', 'X':
			width := 4
			switch sub {
			case subShort:
				width = 2
			case subOctet:
				width = 1
			}
			readWidth := width
			if proto == ProtocolStreaming {
				readWidth = 4
			}
			b, ok := read(readWidth)
			if !ok {
				return formatDegrade(logger, format, "truncated integer argument")
			}
			var raw uint64
			switch readWidth {
			case 1:
				raw = uint64(b[0])
			case 2:
				raw = uint64(order.Uint16(b))
			default:
				raw = uint64(order.Uint32(b))
			}
			// In streaming mode narrower arguments are still read as a
			// full 32-bit word on the wire; truncate the value to the
			// specifier's natural width before sign handling.
			var u uint64
			switch width {
			case 1:
				u = raw & 0xFF
			case 2:
				u = raw & 0xFFFF
			default:
				u = raw
			}
			signed := verb == 'd'
			kind, ival := signExtend(u, width, signed)
			decoded = append(decoded, Argument{Kind: kind, I: ival})
			switch verb {
			case 'x':
				fmt.Fprintf(&out, "%x", u)
			case 'X':
				fmt.Fprintf(&out, "%X", u)
			default:
				fmt.Fprintf(&out, "%d", ival)
			}

		case 'f':
			if sub == subLong {
				b, ok := read(8)
				if !ok {
					return formatDegrade(logger, format, "truncated double argument")
				}
				f := math.Float64frombits(order.Uint64(b))
				decoded = append(decoded, Argument{Kind: ArgF64, F: f})
				fmt.Fprintf(&out, "%g", f)
				break
			}
			b, ok := read(4)
			if !ok {
				return formatDegrade(logger, format, "truncated float argument")
			}
			f := math.Float32frombits(order.Uint32(b))
			decoded = append(decoded, Argument{Kind: ArgF32, F: float64(f)})
			fmt.Fprintf(&out, "%g", f)

		case 's':
			width := 2
			if proto == ProtocolStreaming {
				width = 4
			}
			b, ok := read(width)
			if !ok {
				return formatDegrade(logger, format, "truncated string handle argument")
			}
			var raw uint32
			if width == 2 {
				raw = uint32(order.Uint16(b))
			} else {
				raw = order.Uint32(b)
			}
			handle, valid := NewObjectHandle(raw)
			if !valid {
				return "", nil, fmt.Errorf("%w: %w", ErrFormattedString, ErrInvalidSymbolTableIndex)
			}
			sym, found := lookup(handle)
			if !found {
				return "", nil, fmt.Errorf("%w: %w: %s", ErrFormattedString, ErrFormatSymbolLookup, handle)
			}
			decoded = append(decoded, Argument{Kind: ArgString, String: sym})
			out.WriteString(sym)

		default:
			return formatDegrade(logger, format, fmt.Sprintf("unsupported specifier %%%c", verb))
		}
	}

	return out.String(), decoded, nil
}

func formatDegrade(logger *log.Helper, format, reason string) (string, []Argument, error) {
	if logger != nil {
		logger.Warnf("format string degraded: %s (format=%q)", reason, format)
	}
	return format, nil, nil
}

func signExtend(u uint64, width int, signed bool) (ArgumentKind, int64) {
	if !signed {
		switch width {
		case 1:
			return ArgU8, int64(u)
		case 2:
			return ArgU16, int64(u)
		default:
			return ArgU32, int64(u)
		}
	}
	switch width {
	case 1:
		return ArgI8, int64(int8(u))
	case 2:
		return ArgI16, int64(int16(u))
	default:
		return ArgI32, int64(int32(u))
	}
}
