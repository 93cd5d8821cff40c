package embedding

import "github.com/varsity/gridiron/pkg/logger"

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithLatentDim sets the embedding dimensionality.
func WithLatentDim(dim int) Option {
	return func(m *Model) {
		if dim > 0 {
			m.latentDim = dim
		}
	}
}

// WithHiddenDim sets the width of the encoder/decoder hidden layer.
func WithHiddenDim(dim int) Option {
	return func(m *Model) {
		if dim > 0 {
			m.hiddenDim = dim
		}
	}
}

// WithEpochs caps the number of training epochs.
func WithEpochs(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.epochs = n
		}
	}
}

// WithLearningRate sets the learning rate of the default optimizer.
func WithLearningRate(lr float64) Option {
	return func(m *Model) {
		if lr > 0 {
			m.learningRate = lr
		}
	}
}

// WithKLWeight sets the weight of the latent regularization term relative
// to reconstruction error.
func WithKLWeight(beta float64) Option {
	return func(m *Model) {
		if beta >= 0 {
			m.klWeight = beta
		}
	}
}

// WithTolerance sets the relative loss-improvement threshold below which
// training stops early.
func WithTolerance(tol float64) Option {
	return func(m *Model) {
		if tol > 0 {
			m.tolerance = tol
		}
	}
}

// WithSeed seeds parameter initialization, epoch shuffling, and the
// training-time latent sampler. Inference never consumes randomness.
func WithSeed(seed int64) Option {
	return func(m *Model) { m.seed = seed }
}

// WithOptimizer substitutes the parameter-update rule.
func WithOptimizer(opt Optimizer) Option {
	return func(m *Model) {
		if opt != nil {
			m.opt = opt
		}
	}
}

// WithLogger sets a custom logger for the Model.
func WithLogger(l logger.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.log = l
		}
	}
}
