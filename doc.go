// SPDX-License-Identifier: EPL-2.0

// Package audclass classifies short urban sound clips into one of the ten
// UrbanSound8K categories.
//
// A Service wires the whole pipeline together:
//
//	upload -> validate -> decode -> resample to 22050 Hz -> mono
//	       -> 16-bit -> pad or trim to 4 s -> MFCC (173 x 13)
//	       -> every configured model -> one Outcome per model
//
// # Quick Start
//
//	models, _ := inference.LoadAll([]inference.ModelSpec{
//	    {Name: "LSTM", Path: "models/lstm.msgpack"},
//	    {Name: "BiLSTM", Path: "models/bilstm.msgpack"},
//	}, 173, 13)
//
//	svc, _ := audclass.New(audclass.Options{Models: models})
//
//	data, _ := os.ReadFile("siren.wav")
//	report, err := svc.Classify(ctx, audclass.Upload{Filename: "siren.wav", Data: data})
//	for _, o := range report.Outcomes {
//	    fmt.Println(o.Model, o.Result.Label, o.Result.Confidence)
//	}
//
// # Errors
//
// Rejected uploads return a *ValidationError before anything is decoded.
// Pipeline failures return a *preprocess.Error naming the failed stage.
// When every model fails, Classify returns the report together with
// ErrNoModelResult; a single failing model only marks its own Outcome.
//
// # Concurrency
//
// A Service is safe for concurrent use. Preprocessing is bounded by
// Options.MaxConcurrent; callers wait for a slot or give up when their
// context ends. Models are immutable and run concurrently.
package audclass
