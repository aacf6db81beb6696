// internal/broadcast/feed.go
package broadcast

import (
	"context"

	"github.com/hybridgroup/mjpeg"
)

// JPEGSink accepts encoded frames. *mjpeg.Stream satisfies it.
type JPEGSink interface {
	UpdateJPEG(jpeg []byte)
}

var _ JPEGSink = (*mjpeg.Stream)(nil)

// NewStream returns an MJPEG multipart stream ready to be mounted as an
// http.Handler.
func NewStream() *mjpeg.Stream {
	return mjpeg.NewStream()
}

// Feed copies every new frame into sink until ctx is done.
// One Feed per stream; the stream fans out to its own HTTP clients.
func (b *Broadcaster) Feed(ctx context.Context, sink JPEGSink) error {
	var seq uint64
	for {
		frame, next, err := b.Wait(ctx, seq)
		if err != nil {
			return nil
		}
		seq = next
		sink.UpdateJPEG(frame)
	}
}
