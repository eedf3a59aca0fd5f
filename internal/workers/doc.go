/*
Package workers sizes the encoder thread count and the thumbnail render pool.

Sizes derive from GOMAXPROCS, which Go sets from the container CPU quota,
rather than runtime.NumCPU, which reports the host:

	threads := workers.Pick(cfg.EncoderThreads, 16, workers.ForCPU)
	slots := workers.ForMixed(4)
*/
package workers
