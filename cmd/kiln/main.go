// Command kiln trains and evaluates feed-forward classifiers on
// MNIST-class image data.
//
// Usage:
//
//	kiln train [flags]   train a model described by a YAML run file
//	kiln eval  [flags]   evaluate a saved model on a dataset
//	kiln synth [flags]   write a synthetic dataset as CSV
//	kiln version         print the version
//
// Run kiln <command> -h for the flags of each command.
package main

import (
	"fmt"
	"os"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "train":
		err = runTrain(args)
	case "eval":
		err = runEval(args)
	case "synth":
		err = runSynth(args)
	case "version":
		fmt.Printf("kiln %s\n", version)
	case "help", "-h", "-help", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "kiln: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "kiln: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("kiln - feed-forward classifiers on MNIST-class data")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train      Train a model described by a YAML run file")
	fmt.Println("  eval       Evaluate a saved model on a dataset")
	fmt.Println("  synth      Write a synthetic dataset as CSV")
	fmt.Println("  version    Show version")
	fmt.Println()
	fmt.Println("Run 'kiln <command> -h' for command flags.")
}
