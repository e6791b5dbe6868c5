// Copyright 2025 The Kiln Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package dataset loads MNIST-class image data and feeds it to the
// training loop as mini-batches.
//
// Every loader produces the same in-memory form: one flattened float32
// image per sample with pixels normalized to [0, 1], and an int32 class
// index per sample. Sources covered are the official IDX binary files
// (plain or gzipped), Kaggle-style CSV exports, and a deterministic
// synthetic generator for tests and demos.
//
// Example:
//
//	train, test, err := dataset.LoadMNIST("data/mnist")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	loader := dataset.NewLoader(train, dataset.LoaderConfig{
//	    BatchSize: 64,
//	    Shuffle:   true,
//	    Seed:      42,
//	}, engine)
package dataset

import (
	"github.com/kiln-ml/kiln/internal/dataset"
	"github.com/kiln-ml/kiln/internal/tensor"
)

// Dataset is an in-memory labeled image collection.
type Dataset = dataset.Dataset

// Batch is one mini-batch of images and labels living on backend B.
type Batch[B tensor.Backend] = dataset.Batch[B]

// Loader feeds a Dataset to the training loop as mini-batches on
// backend B. It satisfies the trainer's Source contract.
type Loader[B tensor.Backend] = dataset.Loader[B]

// LoaderConfig configures NewLoader.
type LoaderConfig = dataset.LoaderConfig

// NewLoader creates a Loader over data. A fresh Loader is exhausted;
// call Reset before iterating.
func NewLoader[B tensor.Backend](data *Dataset, cfg LoaderConfig, backend B) *Loader[B] {
	return dataset.NewLoader(data, cfg, backend)
}

// LoadMNIST reads the four MNIST IDX files (train/test images and
// labels, gzipped or plain) from dir.
func LoadMNIST(dir string) (train, test *Dataset, err error) {
	return dataset.LoadMNIST(dir)
}

// LoadFashionMNIST reads the Fashion-MNIST IDX files from dir. The
// file layout matches MNIST; only the class names differ.
func LoadFashionMNIST(dir string) (train, test *Dataset, err error) {
	return dataset.LoadFashionMNIST(dir)
}

// LoadCSV reads a Kaggle-style CSV export where each row is a label
// followed by 784 pixel values in 0..255.
func LoadCSV(path string) (*Dataset, error) {
	return dataset.LoadCSV(path)
}

// WriteCSV writes ds in the layout LoadCSV reads.
func WriteCSV(path string, ds *Dataset) error {
	return dataset.WriteCSV(path, ds)
}

// Synthetic builds a deterministic dataset of class-keyed patterns,
// for tests and for demos that must run without MNIST files on disk.
func Synthetic(n int, seed int64) *Dataset {
	return dataset.Synthetic(n, seed)
}
