// SPDX-License-Identifier: EPL-2.0

// Package preprocess turns uploaded audio into the fixed-shape feature
// matrices the classifiers were trained on.
//
// Normalizer decodes any registered container, resamples to 22,050 Hz,
// mixes to mono, quantizes to 16 bits and pads or truncates (at the end,
// never the start) to exactly four seconds. Extractor turns that waveform
// into a 173 x 13 MFCC matrix that matches librosa's defaults for the same
// parameters.
//
//	norm, _ := preprocess.NewNormalizer(formats.NewRegistry(), preprocess.DefaultConfig())
//	ext, _ := preprocess.NewExtractor(preprocess.DefaultConfig())
//
//	w, err := norm.Normalize(data, "wav")
//	features, err := ext.Extract(w)
//
// Failures are *Error values carrying the Stage that failed; decoding
// problems additionally wrap a *DecodeError.
package preprocess
