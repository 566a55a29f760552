// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package session // import "github.com/drdotnet/agent/session"

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/drdotnet/agent/libpf"
)

// Field numbers of the session messages.
const (
	sessionUUIDField    protowire.Number = 1
	sessionProcessField protowire.Number = 2
	sessionProfilerFld  protowire.Number = 3

	profilerUUIDField   protowire.Number = 1
	profilerNameField   protowire.Number = 2
	profilerDescField   protowire.Number = 3
	profilerParamsField protowire.Number = 5

	paramNameField  protowire.Number = 1
	paramKeyField   protowire.Number = 2
	paramDescField  protowire.Number = 3
	paramTypeField  protowire.Number = 4
	paramValueField protowire.Number = 5
)

// Parse decodes the session parameters the host passed on initialization.
// An empty or malformed buffer, or a missing session uuid, is an error.
func Parse(buf []byte) (*Info, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyBuffer
	}
	info := &Info{}
	err := walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == sessionUUIDField && typ == protowire.BytesType:
			return consumeGUID(b, &info.ID)
		case num == sessionProcessField && typ == protowire.BytesType:
			return consumeString(b, &info.ProcessName)
		case num == sessionProfilerFld && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			if err := parseProfilerInfo(v, &info.Profiler); err != nil {
				return 0, fmt.Errorf("profiler: %w", err)
			}
			return n, nil
		}
		return skip(num, typ, b)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session buffer: %w", err)
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}
	return info, nil
}

func parseProfilerInfo(buf []byte, p *ProfilerInfo) error {
	return walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == profilerUUIDField && typ == protowire.BytesType:
			return consumeGUID(b, &p.ID)
		case num == profilerNameField && typ == protowire.BytesType:
			return consumeString(b, &p.Name)
		case num == profilerDescField && typ == protowire.BytesType:
			return consumeString(b, &p.Description)
		case num == profilerParamsField && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			var param Parameter
			if err := parseParameter(v, &param); err != nil {
				return 0, fmt.Errorf("parameter %d: %w", len(p.Parameters), err)
			}
			p.Parameters = append(p.Parameters, param)
			return n, nil
		}
		return skip(num, typ, b)
	})
}

func parseParameter(buf []byte, p *Parameter) error {
	return walkFields(buf, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == paramNameField && typ == protowire.BytesType:
			return consumeString(b, &p.Name)
		case num == paramKeyField && typ == protowire.BytesType:
			return consumeString(b, &p.Key)
		case num == paramDescField && typ == protowire.BytesType:
			return consumeString(b, &p.Description)
		case num == paramTypeField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Type = ParameterType(v)
			return n, nil
		case num == paramValueField && typ == protowire.BytesType:
			return consumeString(b, &p.Value)
		}
		return skip(num, typ, b)
	})
}

// walkFields calls fn for each field of a message. fn returns the number of
// bytes consumed after the tag, or a negative protowire error code.
func walkFields(buf []byte,
	fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return protowire.ParseError(n)
		}
		buf = buf[n:]
		m, err := fn(num, typ, buf)
		if err != nil {
			return err
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		buf = buf[m:]
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	return protowire.ConsumeFieldValue(num, typ, b), nil
}

func consumeString(b []byte, out *string) (int, error) {
	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*out = v
	}
	return n, nil
}

func consumeGUID(b []byte, out *libpf.GUID) (int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return n, nil
	}
	if v == "" {
		return n, nil
	}
	g, err := libpf.ParseGUID(v)
	if err != nil {
		return 0, err
	}
	*out = g
	return n, nil
}

// Marshal encodes info in the wire format accepted by Parse.
func Marshal(info *Info) ([]byte, error) {
	if info == nil {
		return nil, errors.New("nil session info")
	}
	var b []byte
	if !info.ID.IsNil() {
		b = appendString(b, sessionUUIDField, info.ID.String())
	}
	b = appendString(b, sessionProcessField, info.ProcessName)

	var pb []byte
	if !info.Profiler.ID.IsNil() {
		pb = appendString(pb, profilerUUIDField, info.Profiler.ID.String())
	}
	pb = appendString(pb, profilerNameField, info.Profiler.Name)
	pb = appendString(pb, profilerDescField, info.Profiler.Description)
	for _, p := range info.Profiler.Parameters {
		var ppb []byte
		ppb = appendString(ppb, paramNameField, p.Name)
		ppb = appendString(ppb, paramKeyField, p.Key)
		ppb = appendString(ppb, paramDescField, p.Description)
		if p.Type != Boolean {
			ppb = protowire.AppendTag(ppb, paramTypeField, protowire.VarintType)
			ppb = protowire.AppendVarint(ppb, uint64(p.Type))
		}
		ppb = appendString(ppb, paramValueField, p.Value)
		pb = protowire.AppendTag(pb, profilerParamsField, protowire.BytesType)
		pb = protowire.AppendBytes(pb, ppb)
	}
	b = protowire.AppendTag(b, sessionProfilerFld, protowire.BytesType)
	b = protowire.AppendBytes(b, pb)
	return b, nil
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}
