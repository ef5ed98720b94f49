// Package hub implements the Sensaur serial protocol engine.
//
// A hub talks to one or more sensor/actuator boards over a shared serial
// line using a small framed ASCII protocol with a CRC-16 checksum. Boards
// are hot-pluggable: the hub discovers them on first contact, requests
// their capability metadata, forwards incoming readings to registered
// handlers, and evicts boards that go silent.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                           Hub                              │
//	│                                                            │
//	│  ┌────────────┐   ┌────────────┐   ┌────────────────────┐  │
//	│  │   Poller   │   │  Receiver  │   │ Disconnect checker │  │
//	│  │ (send "p") │   │ (decode +  │   │ (evict silent      │  │
//	│  │            │   │  route)    │   │  devices)          │  │
//	│  └─────┬──────┘   └─────┬──────┘   └─────────┬──────────┘  │
//	│        │                │                    │             │
//	│        ▼                ▼                    ▼             │
//	│  ┌──────────────────────────────────────────────────────┐  │
//	│  │           Registry (devices + components)            │  │
//	│  └──────────────────────────────────────────────────────┘  │
//	└────────────────────────────────────────────────────────────┘
//
// # Wire protocol
//
// One frame per line: <body>|<checksum-hex>. The body is
// <device-index>> followed by a command letter and optional ":"-separated
// args. Commands: p (poll, broadcast), m (metadata), v (values),
// s (set outputs). The checksum is CRC-16/MCRF4XX over the body, rendered
// as uppercase hex with no fixed width.
//
// # Key types
//
//   - Hub: owns the three loops and the transport
//   - Registry: device/component state, one mutex
//   - Event: a decoded protocol frame
//   - Handler: callback for accepted readings
//
// # Usage
//
//	h := hub.New(transport, hub.Options{Logger: log})
//	h.AddHandler(hub.HandlerFunc(func(c *hub.Component, v string) {
//	    fmt.Println(c.Name, v)
//	}))
//	h.Start(ctx)
//	defer h.Stop()
package hub
