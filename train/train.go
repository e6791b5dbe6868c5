// Copyright 2025 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package train drives the optimization of kiln classifiers.
//
// The Trainer owns no numeric code. Each step wires four injected
// capabilities together: a data source yields a batch, the classifier
// produces logits under tape recording, the criterion reduces them to a
// scalar loss, reverse-mode differentiation turns the loss into a
// gradient map, and the optimizer folds the gradients into the
// parameters.
//
// Example:
//
//	engine := autodiff.New(cpu.New())
//	model := nn.NewMLP([]int{784, 128, 10}, rng, engine)
//	criterion := nn.NewCrossEntropyLoss(engine)
//	opt := optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: 0.01})
//
//	trainer := train.New(model, criterion, opt, engine, train.Config{Epochs: 5})
//	history, err := trainer.Fit(loader)
package train

import (
	"github.com/kiln-ml/kiln/internal/autodiff"
	"github.com/kiln-ml/kiln/internal/optim"
	"github.com/kiln-ml/kiln/internal/tensor"
	"github.com/kiln-ml/kiln/internal/train"
)

// Classifier maps a batch of flattened inputs to per-class scores.
// nn.MLP satisfies it.
type Classifier[B tensor.Backend] = train.Classifier[B]

// Criterion reduces logits and integer class targets to a scalar loss.
// nn.CrossEntropyLoss satisfies it.
type Criterion[B tensor.Backend] = train.Criterion[B]

// Source yields the mini-batches of one epoch. dataset.Loader
// satisfies it.
type Source[B tensor.Backend] = train.Source[B]

// Config tunes a Trainer.
type Config = train.Config

// Trainer runs the training loop over injected capabilities.
type Trainer[B autodiff.Recorder] = train.Trainer[B]

// New assembles a Trainer. The optimizer must have been built over the
// same parameters the model reports, and engine must be the autodiff
// decorator behind the model's tensors.
func New[B autodiff.Recorder](model Classifier[B], criterion Criterion[B], opt optim.Optimizer, engine B, cfg Config) *Trainer[B] {
	return train.New(model, criterion, opt, engine, cfg)
}

// EpochStats summarizes one completed epoch.
type EpochStats = train.EpochStats

// History accumulates per-epoch statistics across a training run.
type History = train.History

// ErrNoBatches reports an epoch whose data source yielded no batches.
var ErrNoBatches = train.ErrNoBatches

// ShapeError reports a batch whose per-sample width does not match the
// classifier's input width. The failing step leaves parameters
// untouched.
type ShapeError = train.ShapeError

// Evaluate runs model over src without recording gradients and returns
// the mean batch loss and sample-weighted accuracy. Parameters are not
// modified.
func Evaluate[B autodiff.Recorder](model Classifier[B], criterion Criterion[B], engine B, src Source[B]) (loss, accuracy float64, err error) {
	return train.Evaluate(model, criterion, engine, src)
}
