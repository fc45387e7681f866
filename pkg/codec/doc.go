// Package codec serves the frames of an animated image one at a time.
//
// A Codec hands out frames on request. Decoding and compositing run on a
// decode runner, and the result is delivered on a presentation runner:
//
//	c, err := codec.New(src, codec.Runners{Decode: io, Present: ui})
//	...
//	err = c.GetNextFrame(func(f codec.Frame) {
//		if f.Err != nil {
//			// the frame was skipped; the next request moves on
//			return
//		}
//		show(f.Image)
//		schedule(f.Duration)
//	})
//
// The callback runs exactly once per accepted request unless the Codec is
// disposed first, in which case it is released without being called.
//
// All decode state is owned by the decode runner. Requests that overlap are
// served one after the other in the order they were made.
package codec
