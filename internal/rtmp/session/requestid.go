package session

import cerrors "github.com/alxayo/rtmpcodec/internal/errors"

// allocateRequestID picks the next free slot in h.pending using a wrapping
// u32 counter with a collision check: start where the last allocation left
// off, advance (wrapping) until an unoccupied slot turns up. Only a leak that
// fills all 2^32 slots fails.
func (h *Handler) allocateRequestID() (uint32, error) {
	id := h.nextRequestID
	for attempts := uint64(0); attempts < 1<<32; attempts++ {
		if _, occupied := h.pending[id]; !occupied {
			h.nextRequestID = id + 1
			return id, nil
		}
		id++
	}
	return 0, cerrors.NewCodecError("session.allocate_request_id", cerrors.KindAllRequestIdsInUse, nil, nil)
}
