package nn

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	ActivationIdentity  = "identity"
	ActivationSigmoid   = "sigmoid"
	ActivationReLU      = "relu"
	ActivationTanh      = "tanh"
	ActivationHardLimit = "hardlimit"
)

var ErrActivationNotFound = errors.New("activation not found")

// MutableActivations are the functions hidden and output nodes may be switched
// to by mutation. HardLimit is evaluable but never chosen at random.
var MutableActivations = []string{ActivationSigmoid, ActivationReLU, ActivationTanh, ActivationIdentity}

type ActivationFunc func(x float64) float64

var activations = map[string]ActivationFunc{
	ActivationIdentity: func(x float64) float64 { return x },
	ActivationSigmoid: func(x float64) float64 {
		return 1.0 / (1.0 + math.Exp(-x))
	},
	ActivationReLU: func(x float64) float64 {
		if x < 0 {
			return 0
		}
		return x
	},
	ActivationTanh: math.Tanh,
	// Threshold at zero is inclusive: f(0) = 1.
	ActivationHardLimit: func(x float64) float64 {
		if x >= 0 {
			return 1
		}
		return 0
	},
}

// Activation returns the function stored under name.
func Activation(name string) (ActivationFunc, error) {
	fn, ok := activations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrActivationNotFound, name, strings.Join(Activations(), ", "))
	}
	return fn, nil
}

// Activations lists the known activation names in sorted order.
func Activations() []string {
	names := make([]string, 0, len(activations))
	for name := range activations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
