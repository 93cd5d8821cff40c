// Package embedding learns dense fixed-dimensional representations of
// team-season feature vectors with a variational autoencoder.
//
// Training minimizes a recency-weighted sum of reconstruction error and a
// KL term that pulls the latent distribution toward a standard normal.
// Training samples the latent space stochastically; inference is the
// deterministic point-estimate path (the mean head only), so repeated
// Encode calls on the same trained model are bit-identical.
package embedding

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/varsity/gridiron/internal/domain/model"
	"github.com/varsity/gridiron/pkg/logger"
	"github.com/varsity/gridiron/pkg/metrics"
)

// Default training configuration.
const (
	defaultLatentDim    = 32
	defaultHiddenDim    = 64
	defaultEpochs       = 250
	defaultLearningRate = 0.005
	defaultKLWeight     = 0.05
	defaultTolerance    = 1e-6
	defaultSeed         = 1
	stdFloor            = 1e-8
)

// Sample is one training example: a feature vector and its recency weight.
type Sample struct {
	Vector model.FeatureVector
	Weight float64
}

// params holds matrix/vector views over one flat parameter slice so the
// optimizer can treat the whole model as a single vector.
type params struct {
	w1  *mat.Dense    // hidden x input
	b1  *mat.VecDense // hidden
	wMu *mat.Dense    // latent x hidden
	bMu *mat.VecDense // latent
	wLv *mat.Dense    // latent x hidden
	bLv *mat.VecDense // latent
	w2  *mat.Dense    // hidden x latent
	b2  *mat.VecDense // hidden
	w3  *mat.Dense    // input x hidden
	b3  *mat.VecDense // input
}

func paramCount(in, hidden, latent int) int {
	return hidden*in + hidden + // encoder input layer
		2*(latent*hidden+latent) + // mu and logvar heads
		hidden*latent + hidden + // decoder hidden layer
		in*hidden + in // decoder output layer
}

func viewParams(in, hidden, latent int, backing []float64) *params {
	off := 0
	take := func(n int) []float64 {
		s := backing[off : off+n : off+n]
		off += n
		return s
	}
	return &params{
		w1:  mat.NewDense(hidden, in, take(hidden*in)),
		b1:  mat.NewVecDense(hidden, take(hidden)),
		wMu: mat.NewDense(latent, hidden, take(latent*hidden)),
		bMu: mat.NewVecDense(latent, take(latent)),
		wLv: mat.NewDense(latent, hidden, take(latent*hidden)),
		bLv: mat.NewVecDense(latent, take(latent)),
		w2:  mat.NewDense(hidden, latent, take(hidden*latent)),
		b2:  mat.NewVecDense(hidden, take(hidden)),
		w3:  mat.NewDense(in, hidden, take(in*hidden)),
		b3:  mat.NewVecDense(in, take(in)),
	}
}

// Model is the encoder/decoder pair. Zero value is unusable; construct
// with New and call Train before Encode.
type Model struct {
	latentDim    int
	hiddenDim    int
	epochs       int
	learningRate float64
	klWeight     float64
	tolerance    float64
	seed         int64
	opt          Optimizer
	log          logger.Logger

	trained  bool
	version  string
	inputDim int
	flat     []float64 // parameters
	grad     []float64 // gradient scratch, same layout
	p        *params
	gp       *params

	// Per-dimension input standardization fitted during training.
	featMean []float64
	featStd  []float64
}

// New creates an untrained Model.
func New(opts ...Option) *Model {
	m := &Model{
		latentDim:    defaultLatentDim,
		hiddenDim:    defaultHiddenDim,
		epochs:       defaultEpochs,
		learningRate: defaultLearningRate,
		klWeight:     defaultKLWeight,
		tolerance:    defaultTolerance,
		seed:         defaultSeed,
		log:          logger.Get().Named("embedding"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.opt == nil {
		m.opt = &SGD{LearningRate: m.learningRate}
	}
	return m
}

// LatentDim returns the embedding dimensionality.
func (m *Model) LatentDim() int { return m.latentDim }

// InputDim returns the feature dimensionality the model was trained on.
// Zero before training.
func (m *Model) InputDim() int { return m.inputDim }

// Version returns the identifier of the current trained parameters. Empty
// before training; a new version is issued on every Train call.
func (m *Model) Version() string { return m.version }

// Trained reports whether Train has completed.
func (m *Model) Trained() bool { return m.trained }

// Train fits the encoder/decoder pair on the given samples. Samples with
// missing (NaN) dimensions are excluded from fitting; they can still be
// encoded later once imputed upstream. All randomness comes from the
// configured seed.
func (m *Model) Train(ctx context.Context, samples []Sample) error {
	start := time.Now()
	usable := make([]Sample, 0, len(samples))
	skipped := 0
	for _, s := range samples {
		if hasNaN(s.Vector.Values) {
			skipped++
			continue
		}
		if s.Weight <= 0 {
			s.Weight = 1
		}
		usable = append(usable, s)
	}
	if len(usable) == 0 {
		return ErrNoTrainingData
	}
	m.inputDim = len(usable[0].Vector.Values)
	for _, s := range usable {
		if len(s.Vector.Values) != m.inputDim {
			return fmt.Errorf("%w: %s has %d values, want %d",
				ErrDimensionMismatch, s.Vector.TeamSeason, len(s.Vector.Values), m.inputDim)
		}
	}
	if skipped > 0 {
		m.log.Warn(ctx, "samples with missing features excluded from training",
			logger.Int("skipped", skipped),
			logger.Int("usable", len(usable)),
		)
	}

	m.fitStandardization(usable)
	m.initParams()

	rng := rand.New(rand.NewSource(m.seed)) //nolint:gosec // explicit seed, reproducible training
	order := make([]int, len(usable))
	for i := range order {
		order[i] = i
	}

	x := mat.NewVecDense(m.inputDim, nil)
	eps := mat.NewVecDense(m.latentDim, nil)
	fs := newForwardState(m.inputDim, m.hiddenDim, m.latentDim)

	prevLoss := math.Inf(1)
	epochsRun := 0
	finalLoss := 0.0
	for epoch := 0; epoch < m.epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("training canceled at epoch %d: %w", epoch, err)
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		var epochLoss, weightSum float64
		for _, idx := range order {
			s := usable[idx]
			m.standardizeInto(x, s.Vector.Values)
			for j := 0; j < m.latentDim; j++ {
				eps.SetVec(j, rng.NormFloat64())
			}
			loss := m.forward(fs, x, eps)
			epochLoss += s.Weight * loss
			weightSum += s.Weight

			zero(m.grad)
			m.backward(fs, x, eps, s.Weight)
			m.opt.Step(m.flat, m.grad)
		}
		epochLoss /= weightSum
		epochsRun = epoch + 1
		finalLoss = epochLoss

		if rel := math.Abs(prevLoss-epochLoss) / math.Max(math.Abs(prevLoss), stdFloor); rel < m.tolerance {
			break
		}
		prevLoss = epochLoss
	}

	m.trained = true
	m.version = uuid.NewString()
	metrics.RecordTrainingEpochs(epochsRun)
	metrics.RecordTrainingLoss(finalLoss)
	metrics.RecordTrainingDuration(time.Since(start).Seconds())
	m.log.Info(ctx, "embedding training complete",
		logger.Int("samples", len(usable)),
		logger.Int("epochs", epochsRun),
		logger.Float64("loss", finalLoss),
		logger.String("version", m.version),
	)
	return nil
}

// Encode produces the deterministic point embedding for a feature vector.
// It never consumes randomness: the latent mean head is the embedding.
func (m *Model) Encode(fv model.FeatureVector) (model.Embedding, error) {
	start := time.Now()
	if !m.trained {
		metrics.RecordEncodeError()
		return model.Embedding{}, ErrNotTrained
	}
	if len(fv.Values) != m.inputDim {
		metrics.RecordEncodeError()
		return model.Embedding{}, fmt.Errorf("%w: %s has %d values, want %d",
			ErrDimensionMismatch, fv.TeamSeason, len(fv.Values), m.inputDim)
	}
	for i, v := range fv.Values {
		if math.IsNaN(v) {
			metrics.RecordEncodeError()
			return model.Embedding{}, fmt.Errorf("%w: %s dimension %d",
				ErrMissingFeature, fv.TeamSeason, i)
		}
	}

	x := mat.NewVecDense(m.inputDim, nil)
	m.standardizeInto(x, fv.Values)
	a1 := mat.NewVecDense(m.hiddenDim, nil)
	a1.MulVec(m.p.w1, x)
	a1.AddVec(a1, m.p.b1)
	applyTanh(a1)
	mu := mat.NewVecDense(m.latentDim, nil)
	mu.MulVec(m.p.wMu, a1)
	mu.AddVec(mu, m.p.bMu)

	values := make([]float64, m.latentDim)
	copy(values, mu.RawVector().Data)
	metrics.RecordEncode()
	metrics.RecordEncodeLatency(float64(time.Since(start).Microseconds()) / 1e3)
	return model.Embedding{
		TeamSeason:   fv.TeamSeason,
		ModelVersion: m.version,
		Values:       values,
	}, nil
}

// Reconstruct runs the full point-estimate round trip and returns the
// decoded vector in original feature units. Used to gauge fit quality.
func (m *Model) Reconstruct(fv model.FeatureVector) ([]float64, error) {
	if !m.trained {
		return nil, ErrNotTrained
	}
	if len(fv.Values) != m.inputDim {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimensionMismatch, len(fv.Values), m.inputDim)
	}
	x := mat.NewVecDense(m.inputDim, nil)
	m.standardizeInto(x, fv.Values)
	fs := newForwardState(m.inputDim, m.hiddenDim, m.latentDim)
	m.forward(fs, x, nil)
	out := make([]float64, m.inputDim)
	for i := 0; i < m.inputDim; i++ {
		out[i] = fs.xhat.AtVec(i)*m.featStd[i] + m.featMean[i]
	}
	return out, nil
}

// forwardState holds per-sample activations reused across the epoch loop.
type forwardState struct {
	a1, a2           *mat.VecDense // hidden activations
	mu, lv, z        *mat.VecDense // latent
	xhat             *mat.VecDense
	recon, klPenalty float64
}

func newForwardState(in, hidden, latent int) *forwardState {
	return &forwardState{
		a1:   mat.NewVecDense(hidden, nil),
		a2:   mat.NewVecDense(hidden, nil),
		mu:   mat.NewVecDense(latent, nil),
		lv:   mat.NewVecDense(latent, nil),
		z:    mat.NewVecDense(latent, nil),
		xhat: mat.NewVecDense(in, nil),
	}
}

// forward runs one pass. A nil eps selects the deterministic point-estimate
// path (z = mu); otherwise z = mu + exp(lv/2)*eps (sampling mode). Returns
// the unweighted sample loss.
func (m *Model) forward(fs *forwardState, x, eps *mat.VecDense) float64 {
	fs.a1.MulVec(m.p.w1, x)
	fs.a1.AddVec(fs.a1, m.p.b1)
	applyTanh(fs.a1)

	fs.mu.MulVec(m.p.wMu, fs.a1)
	fs.mu.AddVec(fs.mu, m.p.bMu)
	fs.lv.MulVec(m.p.wLv, fs.a1)
	fs.lv.AddVec(fs.lv, m.p.bLv)

	if eps == nil {
		fs.z.CopyVec(fs.mu)
	} else {
		for j := 0; j < m.latentDim; j++ {
			sigma := math.Exp(0.5 * fs.lv.AtVec(j))
			fs.z.SetVec(j, fs.mu.AtVec(j)+sigma*eps.AtVec(j))
		}
	}

	fs.a2.MulVec(m.p.w2, fs.z)
	fs.a2.AddVec(fs.a2, m.p.b2)
	applyTanh(fs.a2)
	fs.xhat.MulVec(m.p.w3, fs.a2)
	fs.xhat.AddVec(fs.xhat, m.p.b3)

	var recon float64
	for i := 0; i < m.inputDim; i++ {
		d := fs.xhat.AtVec(i) - x.AtVec(i)
		recon += d * d
	}
	recon /= float64(m.inputDim)

	var kl float64
	for j := 0; j < m.latentDim; j++ {
		mu, lv := fs.mu.AtVec(j), fs.lv.AtVec(j)
		kl += -0.5 * (1 + lv - mu*mu - math.Exp(lv))
	}
	kl /= float64(m.latentDim)

	fs.recon = recon
	fs.klPenalty = kl
	return recon + m.klWeight*kl
}

// backward accumulates the gradient of weight*(recon + beta*KL) into m.grad
// for the sampling-mode pass recorded in fs.
func (m *Model) backward(fs *forwardState, x, eps *mat.VecDense, weight float64) {
	in, hidden, latent := m.inputDim, m.hiddenDim, m.latentDim

	dXhat := mat.NewVecDense(in, nil)
	for i := 0; i < in; i++ {
		dXhat.SetVec(i, weight*2*(fs.xhat.AtVec(i)-x.AtVec(i))/float64(in))
	}
	accumOuter(m.gp.w3, dXhat, fs.a2)
	accumVec(m.gp.b3, dXhat)

	dA2 := mat.NewVecDense(hidden, nil)
	dA2.MulVec(m.p.w3.T(), dXhat)
	dS2 := mat.NewVecDense(hidden, nil)
	for i := 0; i < hidden; i++ {
		a := fs.a2.AtVec(i)
		dS2.SetVec(i, dA2.AtVec(i)*(1-a*a))
	}
	accumOuter(m.gp.w2, dS2, fs.z)
	accumVec(m.gp.b2, dS2)

	dZ := mat.NewVecDense(latent, nil)
	dZ.MulVec(m.p.w2.T(), dS2)

	beta := weight * m.klWeight / float64(latent)
	dMu := mat.NewVecDense(latent, nil)
	dLv := mat.NewVecDense(latent, nil)
	for j := 0; j < latent; j++ {
		mu, lv := fs.mu.AtVec(j), fs.lv.AtVec(j)
		sigma := math.Exp(0.5 * lv)
		dMu.SetVec(j, dZ.AtVec(j)+beta*mu)
		dLv.SetVec(j, dZ.AtVec(j)*eps.AtVec(j)*0.5*sigma+beta*0.5*(math.Exp(lv)-1))
	}
	accumOuter(m.gp.wMu, dMu, fs.a1)
	accumVec(m.gp.bMu, dMu)
	accumOuter(m.gp.wLv, dLv, fs.a1)
	accumVec(m.gp.bLv, dLv)

	dA1 := mat.NewVecDense(hidden, nil)
	dA1.MulVec(m.p.wMu.T(), dMu)
	tmp := mat.NewVecDense(hidden, nil)
	tmp.MulVec(m.p.wLv.T(), dLv)
	dA1.AddVec(dA1, tmp)
	dS1 := mat.NewVecDense(hidden, nil)
	for i := 0; i < hidden; i++ {
		a := fs.a1.AtVec(i)
		dS1.SetVec(i, dA1.AtVec(i)*(1-a*a))
	}
	accumOuter(m.gp.w1, dS1, x)
	accumVec(m.gp.b1, dS1)
}

// initParams allocates the flat parameter/gradient slices and initializes
// weights with seeded scaled-normal draws; biases start at zero.
func (m *Model) initParams() {
	n := paramCount(m.inputDim, m.hiddenDim, m.latentDim)
	m.flat = make([]float64, n)
	m.grad = make([]float64, n)
	m.p = viewParams(m.inputDim, m.hiddenDim, m.latentDim, m.flat)
	m.gp = viewParams(m.inputDim, m.hiddenDim, m.latentDim, m.grad)

	rng := rand.New(rand.NewSource(m.seed)) //nolint:gosec // explicit seed, reproducible init
	initDense := func(w *mat.Dense) {
		r, c := w.Dims()
		scale := 1.0 / math.Sqrt(float64(c))
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				w.Set(i, j, rng.NormFloat64()*scale)
			}
		}
	}
	initDense(m.p.w1)
	initDense(m.p.wMu)
	initDense(m.p.wLv)
	initDense(m.p.w2)
	initDense(m.p.w3)
}

func (m *Model) fitStandardization(samples []Sample) {
	m.featMean = make([]float64, m.inputDim)
	m.featStd = make([]float64, m.inputDim)
	n := float64(len(samples))
	for _, s := range samples {
		for i, v := range s.Vector.Values {
			m.featMean[i] += v
		}
	}
	for i := range m.featMean {
		m.featMean[i] /= n
	}
	for _, s := range samples {
		for i, v := range s.Vector.Values {
			d := v - m.featMean[i]
			m.featStd[i] += d * d
		}
	}
	for i := range m.featStd {
		m.featStd[i] = math.Sqrt(m.featStd[i] / n)
		if m.featStd[i] < stdFloor {
			m.featStd[i] = 1
		}
	}
}

func (m *Model) standardizeInto(dst *mat.VecDense, values []float64) {
	for i, v := range values {
		dst.SetVec(i, (v-m.featMean[i])/m.featStd[i])
	}
}

func applyTanh(v *mat.VecDense) {
	data := v.RawVector().Data
	for i := range data {
		data[i] = math.Tanh(data[i])
	}
}

func accumOuter(dst *mat.Dense, a, b *mat.VecDense) {
	r, c := dst.Dims()
	for i := 0; i < r; i++ {
		ai := a.AtVec(i)
		for j := 0; j < c; j++ {
			dst.Set(i, j, dst.At(i, j)+ai*b.AtVec(j))
		}
	}
}

func accumVec(dst, src *mat.VecDense) {
	dst.AddVec(dst, src)
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
