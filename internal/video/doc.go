// Package video decodes and encodes frames through ffmpeg child processes.
//
// Decoding is forward-only: a FrameSource yields frames in presentation order
// and never seeks. Frames are exchanged with ffmpeg as 8-bit grayscale
// rawvideo over pipes, so every decoded frame is already the single-channel
// reduction the analysis and compositing steps work on.
package video
