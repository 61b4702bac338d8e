package pubsub

import (
	"bufio"
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/sirupsen/logrus"
)

// frameProtocol is the libp2p stream protocol this adapter speaks:
// one already-encoded pubsub frame per stream, then close.
const frameProtocol = protocol.ID("/x0x/pubsub-frame/1.0.0")

// LibP2PTransport adapts a libp2p host into a Transport, mirroring
// core/network.go's Node (host + pubsub.PubSub) but narrowed to the two
// operations the manager needs: the connected peer set, and sending one
// already-encoded frame to one peer. Unlike core/network.go's
// gossipsub-per-topic Broadcast, re-broadcast here happens at the frame
// layer (the manager already knows the topic from the decoded frame), so a
// single direct-stream protocol covers every topic.
type LibP2PTransport struct {
	host host.Host
}

// NewLibP2PTransport wraps h, registering the frame-receive handler that
// feeds onFrame whenever a peer opens a stream on frameProtocol.
func NewLibP2PTransport(h host.Host, onFrame func(from PeerID, frame []byte)) *LibP2PTransport {
	t := &LibP2PTransport{host: h}
	h.SetStreamHandler(frameProtocol, func(s network.Stream) {
		defer s.Close()
		reader := bufio.NewReader(s)
		data, err := readAll(reader)
		if err != nil {
			logrus.Warnf("pubsub transport: read stream from %s: %v", s.Conn().RemotePeer(), err)
			return
		}
		onFrame(PeerID(s.Conn().RemotePeer().String()), data)
	})
	return t
}

func readAll(r *bufio.Reader) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			if n == 0 && len(out) == 0 {
				return nil, err
			}
			break
		}
	}
	return out, nil
}

// Peers returns every peer the host currently has an open connection to.
func (t *LibP2PTransport) Peers(ctx context.Context) ([]PeerID, error) {
	conns := t.host.Network().Peers()
	out := make([]PeerID, 0, len(conns))
	for _, p := range conns {
		out = append(out, PeerID(p.String()))
	}
	return out, nil
}

// Send opens a stream to peer on frameProtocol, writes frame, and closes.
func (t *LibP2PTransport) Send(ctx context.Context, p PeerID, frame []byte) error {
	id, err := peer.Decode(string(p))
	if err != nil {
		return fmt.Errorf("pubsub transport: decode peer %q: %w", p, err)
	}
	s, err := t.host.NewStream(ctx, id, frameProtocol)
	if err != nil {
		return fmt.Errorf("pubsub transport: open stream to %s: %w", p, err)
	}
	defer s.Close()
	if _, err := s.Write(frame); err != nil {
		return fmt.Errorf("pubsub transport: write to %s: %w", p, err)
	}
	return nil
}
