// Package bufpool recycles the backing arrays the chunk layer reassembles
// message payloads into. A deserializer takes one buffer per in-flight
// message, appends a chunk's worth of bytes at a time, then either hands
// the buffer off inside a completed payload or abandons it on an abort;
// pooling the recurring sizes keeps a long session from hammering the
// allocator once per message.
package bufpool

import "sync"

// Capacity classes, smallest first: 128 covers control messages at the
// protocol-default chunk size, 4 KiB covers command and data frames, 64 KiB
// covers audio and inter frames, 1 MiB covers video keyframes. Requests
// beyond the largest class are served unpooled.
var classCaps = [...]int{128, 4 << 10, 64 << 10, 1 << 20}

// Pool hands out zero-length byte slices with pre-sized capacity for the
// caller to append into. Recycled buffers are not scrubbed: treat every
// buffer as write-before-read. The zero value is ready to use.
type Pool struct {
	classes [len(classCaps)]sync.Pool
}

var shared Pool

// Get returns an append-ready buffer from the shared pool.
func Get(capacity int) []byte { return shared.Get(capacity) }

// Put hands buf back to the shared pool.
func Put(buf []byte) { shared.Put(buf) }

// Get returns a zero-length slice whose capacity is the smallest class able
// to hold capacity. Requests beyond the largest class get an exact-size
// unpooled allocation; requests of zero or less return nil.
func (p *Pool) Get(capacity int) []byte {
	if p == nil || capacity <= 0 {
		return nil
	}
	i := classIndex(capacity)
	if i < 0 {
		return make([]byte, 0, capacity)
	}
	if v := p.classes[i].Get(); v != nil {
		return (*v.(*[]byte))[:0]
	}
	return make([]byte, 0, classCaps[i])
}

// Put recycles buf for a later Get. Only buffers whose capacity is exactly
// a class capacity are retained; everything else, including the oversized
// allocations Get makes, is left to the garbage collector.
func (p *Pool) Put(buf []byte) {
	if p == nil || buf == nil {
		return
	}
	i := classIndex(cap(buf))
	if i < 0 || cap(buf) != classCaps[i] {
		return
	}
	buf = buf[:0]
	p.classes[i].Put(&buf)
}

// classIndex picks the smallest class able to hold n, or -1 when none can.
func classIndex(n int) int {
	for i, c := range classCaps {
		if n <= c {
			return i
		}
	}
	return -1
}
