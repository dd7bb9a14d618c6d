package request

import "sync"

const readBufferSize = 4096

var readBuffers = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, readBufferSize)
		return &buf
	},
}

func getReadBuffer() *[]byte {
	return readBuffers.Get().(*[]byte)
}

// putReadBuffer drops buffers of an unexpected size and leaves them to the GC.
func putReadBuffer(buf *[]byte) {
	if cap(*buf) != readBufferSize {
		return
	}
	*buf = (*buf)[:readBufferSize]
	readBuffers.Put(buf)
}
