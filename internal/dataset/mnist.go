package dataset

import (
	"fmt"
	"os"
	"path/filepath"
)

var (
	mnistClasses = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

	// Fashion-MNIST reuses MNIST's files and format byte for byte;
	// only the meaning of the ten labels differs.
	fashionClasses = []string{
		"T-shirt/top", "Trouser", "Pullover", "Dress", "Coat",
		"Sandal", "Shirt", "Sneaker", "Bag", "Ankle boot",
	}
)

// LoadMNIST loads the standard four-file MNIST layout from dir:
// train-images-idx3-ubyte, train-labels-idx1-ubyte, t10k-images-idx3-ubyte
// and t10k-labels-idx1-ubyte, each either raw or with a .gz suffix.
func LoadMNIST(dir string) (train, test *Dataset, err error) {
	return loadIDXPair(dir, mnistClasses)
}

// LoadFashionMNIST loads Fashion-MNIST, which ships under the same
// file names and IDX format as MNIST.
func LoadFashionMNIST(dir string) (train, test *Dataset, err error) {
	return loadIDXPair(dir, fashionClasses)
}

func loadIDXPair(dir string, classes []string) (*Dataset, *Dataset, error) {
	train, err := loadSplit(dir, "train-images-idx3-ubyte", "train-labels-idx1-ubyte", classes)
	if err != nil {
		return nil, nil, err
	}
	test, err := loadSplit(dir, "t10k-images-idx3-ubyte", "t10k-labels-idx1-ubyte", classes)
	if err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

func loadSplit(dir, imagesName, labelsName string, classes []string) (*Dataset, error) {
	imagesPath, err := findFile(dir, imagesName)
	if err != nil {
		return nil, err
	}
	labelsPath, err := findFile(dir, labelsName)
	if err != nil {
		return nil, err
	}

	images, rows, cols, err := readImages(imagesPath)
	if err != nil {
		return nil, err
	}
	labels, err := readLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("dataset: %d images but %d labels under %s", len(images), len(labels), dir)
	}
	for i, l := range labels {
		if int(l) >= len(classes) {
			return nil, fmt.Errorf("dataset: label %d at sample %d exceeds %d classes", l, i, len(classes))
		}
	}

	return &Dataset{
		Images:  images,
		Labels:  labels,
		Classes: classes,
		Rows:    rows,
		Cols:    cols,
	}, nil
}

// findFile returns whichever of name or name.gz exists in dir.
func findFile(dir, name string) (string, error) {
	plain := filepath.Join(dir, name)
	if _, err := os.Stat(plain); err == nil {
		return plain, nil
	}
	gz := plain + ".gz"
	if _, err := os.Stat(gz); err == nil {
		return gz, nil
	}
	return "", fmt.Errorf("dataset: neither %s nor %s.gz found in %s: %w", name, name, dir, os.ErrNotExist)
}
