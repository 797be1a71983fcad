// Package measure reports the intrinsic size of leaf content.
//
// Text is shaped with go-text/typesetting (HarfBuzz) and wrapped greedily at
// word boundaries; images report the dimensions found in their encoded
// header without decoding pixels. Service combines both behind the
// layout.Measurer interface, and Service.Prefetch measures a batch of leaves
// concurrently before the layout pass consumes the results.
//
// Basic usage:
//
//	svc := measure.NewService(measure.NewShaper(nil), measure.HeaderDecoder{})
//	engine := layout.NewEngine(store, svc)
package measure
