package persist

import "sync/atomic"

func tryAcquire(flag *int32) bool {
	return atomic.CompareAndSwapInt32(flag, 0, 1)
}

func release(flag *int32) {
	atomic.StoreInt32(flag, 0)
}
