package embedding

// Optimizer applies one parameter update given the gradient of the training
// objective. The model owns loss composition and gradient computation; any
// first-order optimizer satisfying this contract can be substituted.
type Optimizer interface {
	// Step updates params in place from grads. Both slices are the full
	// flattened parameter set and have equal length.
	Step(params, grads []float64)
}

// SGD is plain stochastic gradient descent, the default optimizer.
type SGD struct {
	LearningRate float64
}

// Step applies params -= lr * grads.
func (s *SGD) Step(params, grads []float64) {
	for i := range params {
		params[i] -= s.LearningRate * grads[i]
	}
}

// Momentum is SGD with classical momentum, kept for experiments where plain
// SGD converges too slowly on wide feature scales.
type Momentum struct {
	LearningRate float64
	Decay        float64

	velocity []float64
}

// Step applies v = decay*v - lr*grads; params += v.
func (m *Momentum) Step(params, grads []float64) {
	if m.velocity == nil {
		m.velocity = make([]float64, len(params))
	}
	for i := range params {
		m.velocity[i] = m.Decay*m.velocity[i] - m.LearningRate*grads[i]
		params[i] += m.velocity[i]
	}
}
