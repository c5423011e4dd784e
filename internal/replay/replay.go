// Package replay runs captured RTU-over-IP traffic through the frame assembler.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/rtuport/internal/log"
	"firestige.xyz/rtuport/internal/rtu"
)

// Options selects the device side of the capture.
type Options struct {
	// DevicePort is the TCP or UDP port of the serial gateway. Payloads sent
	// to it are requests, payloads sent from it are response bytes.
	DevicePort uint16
	Assembler  rtu.AssemblerOptions
}

// Event is one frame recovered from the capture.
type Event struct {
	Timestamp time.Time
	Request   []byte
	Frame     rtu.Frame
}

// Stats summarises a replay run.
type Stats struct {
	Packets       int
	Requests      int
	ResponseBytes int
	Frames        int
	Exceptions    int
	Skipped       int
}

// Replayer feeds payloads of a capture to an Assembler in capture order.
type Replayer struct {
	opts      Options
	assembler *rtu.Assembler
	lastReq   []byte
	stats     Stats
	logger    log.Logger
}

func New(opts Options) *Replayer {
	return &Replayer{
		opts:      opts,
		assembler: rtu.NewAssembler(opts.Assembler),
		logger:    log.GetLogger().WithField("component", "replay"),
	}
}

// File replays the pcap file at path, calling fn for every frame found.
func (r *Replayer) File(path string, fn func(Event) error) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return r.stats, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	defer f.Close()

	return r.Read(f, fn)
}

// Read replays a pcap stream.
func (r *Replayer) Read(src io.Reader, fn func(Event) error) (Stats, error) {
	reader, err := pcapgo.NewReader(src)
	if err != nil {
		return r.stats, fmt.Errorf("failed to read capture header: %w", err)
	}
	linkType := reader.LinkType()

	for {
		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return r.stats, nil
		}
		if err != nil {
			return r.stats, fmt.Errorf("failed to read packet: %w", err)
		}
		r.stats.Packets++

		packet := gopacket.NewPacket(data, linkType, gopacket.Lazy)
		if err := r.Packet(packet, ci.Timestamp, fn); err != nil {
			return r.stats, err
		}
	}
}

// Packet feeds a single decoded packet.
func (r *Replayer) Packet(packet gopacket.Packet, ts time.Time, fn func(Event) error) error {
	src, dst, payload, ok := transportPayload(packet)
	if !ok || len(payload) == 0 {
		r.stats.Skipped++
		return nil
	}

	switch r.opts.DevicePort {
	case dst:
		r.stats.Requests++
		r.lastReq = append(r.lastReq[:0], payload...)
		if err := r.assembler.OnRequestSent(payload); err != nil {
			r.logger.WithError(err).Debugf("request at %s: % X", ts.Format(time.RFC3339Nano), payload)
		}
		return nil
	case src:
		r.stats.ResponseBytes += len(payload)
		frames, err := r.assembler.OnBytesReceived(payload)
		if err != nil {
			r.logger.WithError(err).Warn("receive buffer reset during replay")
		}
		for _, frame := range frames {
			r.stats.Frames++
			if frame.IsException() {
				r.stats.Exceptions++
			}
			if fn == nil {
				continue
			}
			ev := Event{Timestamp: ts, Request: append([]byte(nil), r.lastReq...), Frame: frame}
			if err := fn(ev); err != nil {
				return err
			}
		}
		return nil
	default:
		r.stats.Skipped++
		return nil
	}
}

func transportPayload(packet gopacket.Packet) (src, dst uint16, payload []byte, ok bool) {
	if tcp, isTCP := packet.Layer(layers.LayerTypeTCP).(*layers.TCP); isTCP {
		return uint16(tcp.SrcPort), uint16(tcp.DstPort), tcp.LayerPayload(), true
	}
	if udp, isUDP := packet.Layer(layers.LayerTypeUDP).(*layers.UDP); isUDP {
		return uint16(udp.SrcPort), uint16(udp.DstPort), udp.LayerPayload(), true
	}
	return 0, 0, nil, false
}
