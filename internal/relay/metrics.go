package relay

import (
	"sync/atomic"
	"time"
)

// Metrics tracks relay statistics with atomic counters
type Metrics struct {
	PushesReceived   atomic.Int64
	DeliveriesSent   atomic.Int64
	Undelivered      atomic.Int64
	Dropped          atomic.Int64
	Subscriptions    atomic.Int64
	ConnectedClients atomic.Int32
	StartTime        time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

func (m *Metrics) IncPushesReceived() { m.PushesReceived.Add(1) }
func (m *Metrics) IncDeliveriesSent() { m.DeliveriesSent.Add(1) }

// IncUndelivered counts pushes for users with no connected device.
func (m *Metrics) IncUndelivered() { m.Undelivered.Add(1) }

// IncDropped counts messages skipped because a client queue was full.
func (m *Metrics) IncDropped() { m.Dropped.Add(1) }

func (m *Metrics) IncSubscriptions() { m.Subscriptions.Add(1) }

func (m *Metrics) SetConnectedClients(count int32) { m.ConnectedClients.Store(count) }

// Snapshot is a point-in-time copy of the metrics
type Snapshot struct {
	PushesReceived   int64     `json:"pushes_received"`
	DeliveriesSent   int64     `json:"deliveries_sent"`
	Undelivered      int64     `json:"undelivered"`
	Dropped          int64     `json:"dropped"`
	Subscriptions    int64     `json:"subscriptions"`
	ConnectedClients int32     `json:"connected_clients"`
	StartTime        time.Time `json:"start_time"`
	Uptime           string    `json:"uptime"`
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		PushesReceived:   m.PushesReceived.Load(),
		DeliveriesSent:   m.DeliveriesSent.Load(),
		Undelivered:      m.Undelivered.Load(),
		Dropped:          m.Dropped.Load(),
		Subscriptions:    m.Subscriptions.Load(),
		ConnectedClients: m.ConnectedClients.Load(),
		StartTime:        m.StartTime,
		Uptime:           time.Since(m.StartTime).Round(time.Second).String(),
	}
}
