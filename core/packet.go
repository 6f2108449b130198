package core

import (
	"fmt"
	"strings"
	"time"
)

// PacketKind classifies the data a packet carries; it drives the packet colour.
type PacketKind string

const (
	PacketRequest  PacketKind = "request"
	PacketResponse PacketKind = "response"
	PacketError    PacketKind = "error"
	PacketSync     PacketKind = "sync"
	PacketAsync    PacketKind = "async"
)

var packetColors = map[PacketKind]string{
	PacketRequest:  "#60a5fa", // blue
	PacketResponse: "#4ade80", // green
	PacketError:    "#ef4444", // red
	PacketSync:     "#c084fc", // purple
	PacketAsync:    "#facc15", // yellow
}

// ParsePacketKind accepts a kind name case-insensitively. An empty name is a request.
func ParsePacketKind(s string) (PacketKind, error) {
	if s == "" {
		return PacketRequest, nil
	}
	kind := PacketKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := packetColors[kind]; !ok {
		return "", fmt.Errorf("unknown packet kind %q", s)
	}
	return kind, nil
}

// OrDefault maps the zero kind to request.
func (k PacketKind) OrDefault() PacketKind {
	if k == "" {
		return PacketRequest
	}
	return k
}

// Color returns the hex display colour of the kind.
func (k PacketKind) Color() string {
	if c, ok := packetColors[k.OrDefault()]; ok {
		return c
	}
	return packetColors[PacketRequest]
}

// Packet is a transient token travelling from one node to another. It lives
// for exactly one step and is removed once ExpiresAt is reached.
type Packet struct {
	ID        string     `json:"id"`
	From      NodeID     `json:"from"`
	To        NodeID     `json:"to"`
	Label     string     `json:"label,omitempty"`
	Kind      PacketKind `json:"kind"`
	SpawnedAt time.Time  `json:"spawnedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Progress reports how far along its travel the packet is at now, in [0,1].
func (p *Packet) Progress(now time.Time) float64 {
	if p == nil {
		return 0
	}
	total := p.ExpiresAt.Sub(p.SpawnedAt)
	if total <= 0 {
		return 1
	}
	elapsed := now.Sub(p.SpawnedAt)
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= total {
		return 1
	}
	return float64(elapsed) / float64(total)
}

// Expired reports whether the packet has reached its destination at now.
func (p *Packet) Expired(now time.Time) bool {
	return p != nil && !now.Before(p.ExpiresAt)
}

// Shift moves both timestamps by d.
func (p *Packet) Shift(d time.Duration) {
	if p == nil {
		return
	}
	p.SpawnedAt = p.SpawnedAt.Add(d)
	p.ExpiresAt = p.ExpiresAt.Add(d)
}
