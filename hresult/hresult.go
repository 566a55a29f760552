// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

// Package hresult defines the closed set of status codes returned across the
// binding boundary. HRESULT implements error so that handler code can return
// a specific status through ordinary Go error paths.
package hresult // import "github.com/drdotnet/agent/hresult"

import (
	"errors"
	"fmt"
)

// HRESULT is a 32-bit status code. Negative values (high bit set) are
// failures.
type HRESULT int32

//nolint:revive,stylecheck
const (
	S_OK                         HRESULT = 0
	S_FALSE                      HRESULT = 1
	E_NOTIMPL                    HRESULT = -0x7fffbfff // 0x80004001
	E_NOINTERFACE                HRESULT = -0x7fffbffe // 0x80004002
	E_POINTER                    HRESULT = -0x7fffbffd // 0x80004003
	E_FAIL                       HRESULT = -0x7fffbffb // 0x80004005
	E_OUTOFMEMORY                HRESULT = -0x7ff8fff2 // 0x8007000E
	E_INVALIDARG                 HRESULT = -0x7ff8ffa9 // 0x80070057
	CLASS_E_NOAGGREGATION        HRESULT = -0x7ffbfef0 // 0x80040110
	CLASS_E_CLASSNOTAVAILABLE    HRESULT = -0x7ffbfeef // 0x80040111
	CORPROF_E_PROFILER_DETACHING HRESULT = -0x7fecec99 // 0x80131367
)

var names = map[HRESULT]string{
	S_OK:                         "S_OK",
	S_FALSE:                      "S_FALSE",
	E_NOTIMPL:                    "E_NOTIMPL",
	E_NOINTERFACE:                "E_NOINTERFACE",
	E_POINTER:                    "E_POINTER",
	E_FAIL:                       "E_FAIL",
	E_OUTOFMEMORY:                "E_OUTOFMEMORY",
	E_INVALIDARG:                 "E_INVALIDARG",
	CLASS_E_NOAGGREGATION:        "CLASS_E_NOAGGREGATION",
	CLASS_E_CLASSNOTAVAILABLE:    "CLASS_E_CLASSNOTAVAILABLE",
	CORPROF_E_PROFILER_DETACHING: "CORPROF_E_PROFILER_DETACHING",
}

// Succeeded reports whether hr is a success code.
func (hr HRESULT) Succeeded() bool { return hr >= 0 }

// Failed reports whether hr is a failure code.
func (hr HRESULT) Failed() bool { return hr < 0 }

// Uint32 returns the raw bit pattern as seen by the host.
func (hr HRESULT) Uint32() uint32 { return uint32(hr) }

// String returns the symbolic name, or the hex value for codes outside the
// known set.
func (hr HRESULT) String() string {
	if name, ok := names[hr]; ok {
		return name
	}
	return fmt.Sprintf("HRESULT(0x%08X)", uint32(hr))
}

// Error implements error.
func (hr HRESULT) Error() string {
	return fmt.Sprintf("%s (0x%08X)", hr.String(), uint32(hr))
}

// FromError maps an error returned by handler code to a status code. A nil
// error is S_OK, an error wrapping an HRESULT keeps that code and everything
// else becomes E_FAIL.
func FromError(err error) HRESULT {
	if err == nil {
		return S_OK
	}
	var hr HRESULT
	if errors.As(err, &hr) {
		return hr
	}
	return E_FAIL
}

// ToError is the inverse of FromError for codes coming back from the host.
func ToError(hr HRESULT) error {
	if hr.Succeeded() {
		return nil
	}
	return hr
}
