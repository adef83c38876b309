// SPDX-License-Identifier: EPL-2.0

// Package inference runs MFCC feature matrices through trained sequence
// classifiers and turns their output into labelled predictions.
//
// Models are loaded from msgpack files holding the layer stack and weights
// of the trained Keras networks (LSTM, bidirectional LSTM, dense and
// friends). A Set keeps the loaded models in configuration order; Classify
// runs them concurrently and reports one Outcome per model, so one broken
// model never hides the answers of the others.
package inference
