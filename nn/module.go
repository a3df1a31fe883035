// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/born-sae/internal/nn"
)

// Layer is the forward/backward/gradient contract a host network drives.
//
// Hosts inspect Capabilities to decide how to wire a layer:
//
//	if l.Capabilities().Connection {
//	    l.Gradient(delta)
//	}
type Layer = nn.Layer

// Capabilities is the set of flags describing a layer to its host graph.
type Capabilities = nn.Capabilities

// Ownership records whether a layer releases its optimizer on Close.
type Ownership = nn.Ownership

// Ownership values.
const (
	Borrowed Ownership = nn.Borrowed
	Owned    Ownership = nn.Owned
)
