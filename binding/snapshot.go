// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package binding // import "github.com/drdotnet/agent/binding"

import (
	"github.com/drdotnet/agent/hresult"
	"github.com/drdotnet/agent/host"
)

// WithSnapshotReceiver registers receiver for the duration of fn and passes
// fn the client data handle the host echoes back with every frame. The
// receiver is unregistered on every return path of fn, panics included.
func (b *Binding) WithSnapshotReceiver(receiver host.SnapshotReceiver,
	fn func(clientData Handle) error) error {
	h := b.newHandle()
	receivers := b.receivers.WLock()
	(*receivers)[h] = receiver
	b.receivers.WUnlock(&receivers)

	defer func() {
		receivers := b.receivers.WLock()
		delete(*receivers, h)
		b.receivers.WUnlock(&receivers)
	}()
	return fn(h)
}

// StackSnapshotCallback delivers one frame to the receiver registered under
// clientData. S_FALSE asks the host to stop the walk.
func (b *Binding) StackSnapshotCallback(frame host.StackFrame, clientData Handle) hresult.HRESULT {
	if clientData == 0 {
		return hresult.E_POINTER
	}
	receivers := b.receivers.RLock()
	receiver, ok := (*receivers)[clientData]
	b.receivers.RUnlock(&receivers)
	if !ok {
		return hresult.E_INVALIDARG
	}
	if !receiver(frame) {
		return hresult.S_FALSE
	}
	return hresult.S_OK
}

// Receivers returns the number of registered snapshot receivers.
func (b *Binding) Receivers() int {
	receivers := b.receivers.RLock()
	defer b.receivers.RUnlock(&receivers)
	return len(*receivers)
}
