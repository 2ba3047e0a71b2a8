package peripheral

import (
	"testing"
	"time"

	"github.com/reefward/chiller/iox"
	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/rpc"
)

// startPeripheralServer serves a registry with a simulated tank over a real
// loopback listener.
func startPeripheralServer(t *testing.T) (*rpc.Server, *SimRelay) {
	t.Helper()

	peltier := NewSimRelay()
	fan := NewSimRelay()
	tank := NewSimTank(SimTankConfig{
		Initial:   22,
		Ambient:   28,
		CoolRate:  0.05,
		DriftRate: 0.01,
		Peltier:   peltier,
	})

	registry := NewRegistry()
	if err := registry.AddSensor("tank_temp", tank); err != nil {
		t.Fatalf("AddSensor: %v", err)
	}
	if err := registry.AddDevice("peltier", peltier); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	if err := registry.AddDevice("fan", fan); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}

	svc := NewService(ServiceConfig{
		Registry:      registry,
		CacheLifetime: time.Minute,
		Logger:        log.NewLogger("periphd-test"),
	})

	srv, err := rpc.Listen(rpc.ServerConfig{
		Host:    "127.0.0.1",
		Handler: svc.Handle,
		Logger:  log.NewLogger("periphd-test"),
	})
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { _ = srv.Close() })

	return srv, peltier
}

func TestClientAgainstLiveService(t *testing.T) {
	srv, relay := startPeripheralServer(t)

	client := NewClient(srv.Addr().String())
	t.Cleanup(iox.CloseFunc(client))

	temp, err := client.Read("tank_temp")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if temp != 22 {
		t.Errorf("Read = %v, want 22", temp)
	}

	on, err := client.IsOn("peltier")
	if err != nil || on {
		t.Fatalf("IsOn = %v, %v, want false", on, err)
	}

	if err := client.TurnOn("peltier"); err != nil {
		t.Fatalf("TurnOn: %v", err)
	}
	if on, _ := relay.IsOn(); !on {
		t.Error("relay not on after TurnOn")
	}
	if on, err := client.IsOn("peltier"); err != nil || !on {
		t.Fatalf("IsOn after TurnOn = %v, %v, want true", on, err)
	}

	if err := client.TurnOff("peltier"); err != nil {
		t.Fatalf("TurnOff: %v", err)
	}
	if on, _ := relay.IsOn(); on {
		t.Error("relay still on after TurnOff")
	}
}

func TestClientSurfacesServiceErrorKinds(t *testing.T) {
	srv, _ := startPeripheralServer(t)

	client := NewClient(srv.Addr().String())
	t.Cleanup(iox.CloseFunc(client))

	if _, err := client.Read("heater"); !rpc.IsKind(err, rpc.KindNotFound) {
		t.Errorf("Read(heater) = %v, want kind %s", err, rpc.KindNotFound)
	}
	if err := client.TurnOn("tank_temp"); !rpc.IsKind(err, rpc.KindMalformedRequest) {
		t.Errorf("TurnOn(tank_temp) = %v, want kind %s", err, rpc.KindMalformedRequest)
	}
}

func TestSimTankModel(t *testing.T) {
	clock := &fakeClock{at: time.Unix(1700000000, 0)}
	peltier := NewSimRelay()
	tank := NewSimTank(SimTankConfig{
		Initial:   24,
		Ambient:   28,
		CoolRate:  0.1,
		DriftRate: 0.05,
		Peltier:   peltier,
		Now:       clock.now,
	})

	// Cooling on: temperature falls.
	_ = peltier.TurnOn()
	clock.advance(10 * time.Second)
	got, err := tank.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != 23 {
		t.Errorf("temp after 10s cooling = %v, want 23", got)
	}

	// Cooling off: temperature drifts toward ambient and never overshoots.
	_ = peltier.TurnOff()
	clock.advance(50 * time.Second)
	if got, _ = tank.Read(); got != 25.5 {
		t.Errorf("temp after 50s drift = %v, want 25.5", got)
	}
	clock.advance(3600 * time.Second)
	if got, _ = tank.Read(); got != 28 {
		t.Errorf("temp after long drift = %v, want ambient 28", got)
	}
}
