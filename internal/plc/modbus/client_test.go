// internal/plc/modbus/client_test.go
package modbus

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// fakeSlave answers read-coils and write-single-coil over Modbus TCP.
type fakeSlave struct {
	ln net.Listener

	mu     sync.Mutex
	coils  map[uint16]bool
	writes []uint16 // coil addresses written, in order
}

func newFakeSlave(t *testing.T) *fakeSlave {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSlave{ln: ln, coils: map[uint16]bool{}}
	t.Cleanup(func() { _ = ln.Close() })
	go s.serve()
	return s
}

func (s *fakeSlave) addr() string { return s.ln.Addr().String() }

func (s *fakeSlave) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handle(conn)
	}
}

func (s *fakeSlave) handle(conn net.Conn) {
	defer conn.Close()
	for {
		header := make([]byte, 7)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		n := int(binary.BigEndian.Uint16(header[4:6])) - 1
		pdu := make([]byte, n)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		var resp []byte
		switch pdu[0] {
		case 0x01: // read coils, quantity 1
			addr := binary.BigEndian.Uint16(pdu[1:3])
			s.mu.Lock()
			var bit byte
			if s.coils[addr] {
				bit = 1
			}
			s.mu.Unlock()
			resp = []byte{0x01, 0x01, bit}
		case 0x05: // write single coil
			addr := binary.BigEndian.Uint16(pdu[1:3])
			s.mu.Lock()
			s.coils[addr] = binary.BigEndian.Uint16(pdu[3:5]) == coilOn
			s.writes = append(s.writes, addr)
			s.mu.Unlock()
			resp = append([]byte(nil), pdu...)
		default:
			resp = []byte{pdu[0] | 0x80, 0x01}
		}

		out := make([]byte, 7+len(resp))
		copy(out[0:4], header[0:4])
		binary.BigEndian.PutUint16(out[4:6], uint16(len(resp)+1))
		out[6] = header[6]
		copy(out[7:], resp)
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func (s *fakeSlave) coil(addr uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coils[addr]
}

func TestNew_RequiresEndpoint(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected endpoint error")
	}
}

func TestClient_ConnectWriteProbe(t *testing.T) {
	slave := newFakeSlave(t)

	c, err := New(Config{Endpoint: slave.addr(), UnitID: 1, Coils: [2]uint16{10, 11}, Timeout: time.Second})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	ctx := context.Background()

	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() err=%v", err)
	}
	defer c.Close(ctx)

	if err := c.Write(ctx, 1, true); err != nil {
		t.Fatalf("Write(1,true) err=%v", err)
	}
	if !slave.coil(11) || slave.coil(10) {
		t.Fatalf("expected only coil 11 set")
	}

	if err := c.Write(ctx, 1, false); err != nil {
		t.Fatalf("Write(1,false) err=%v", err)
	}
	if slave.coil(11) {
		t.Fatalf("expected coil 11 cleared")
	}

	if err := c.Probe(ctx); err != nil {
		t.Fatalf("Probe() err=%v", err)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c, err := New(Config{Endpoint: "127.0.0.1:1", Coils: [2]uint16{0, 1}})
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	ctx := context.Background()

	if err := c.Write(ctx, 0, true); err == nil {
		t.Fatalf("expected not connected error")
	}
	if err := c.Write(ctx, 5, true); err == nil {
		t.Fatalf("expected channel range error")
	}
	if err := c.Probe(ctx); err == nil {
		t.Fatalf("expected not connected error")
	}
	if err := c.Close(ctx); err != nil {
		t.Fatalf("Close on unconnected client: %v", err)
	}
}
