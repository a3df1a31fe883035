// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/born-ml/born-sae/internal/optim"
)

// Optimizer interface defines the common interface for all optimizers.
type Optimizer = optim.Optimizer

// Target is the layer an optimizer updates.
type Target = optim.Target

// Stateful is implemented by optimizers whose state can be checkpointed.
type Stateful = optim.Stateful

// Factory builds an optimizer bound to a target.
type Factory = optim.Factory

// Config represents the base configuration for optimizers.
type Config = optim.Config

// RMSProp

// RMSProp represents the RMSProp optimizer.
type RMSProp = optim.RMSProp

// RMSPropConfig contains configuration for RMSProp optimizer.
type RMSPropConfig = optim.RMSPropConfig

// NewRMSProp creates a new RMSProp optimizer bound to target.
func NewRMSProp(target Target, config RMSPropConfig) *RMSProp {
	return optim.NewRMSProp(target, config)
}

// RMSPropFactory returns a Factory producing RMSProp optimizers.
func RMSPropFactory(config RMSPropConfig) Factory {
	return optim.RMSPropFactory(config)
}

// SGD (Stochastic Gradient Descent)

// SGD represents the SGD optimizer with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer bound to target.
//
// Example:
//
//	sgd := optim.NewSGD(layer, optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
func NewSGD(target Target, config SGDConfig) *SGD {
	return optim.NewSGD(target, config)
}

// SGDFactory returns a Factory producing SGD optimizers.
func SGDFactory(config SGDConfig) Factory {
	return optim.SGDFactory(config)
}

// Adam (Adaptive Moment Estimation)

// Adam represents the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer bound to target.
func NewAdam(target Target, config AdamConfig) *Adam {
	return optim.NewAdam(target, config)
}

// AdamFactory returns a Factory producing Adam optimizers.
func AdamFactory(config AdamConfig) Factory {
	return optim.AdamFactory(config)
}
