package cmd

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/reefward/chiller/control"
	"github.com/reefward/chiller/log"
	"github.com/reefward/chiller/rpc"
	"github.com/reefward/chiller/supervise"
	"github.com/reefward/chiller/wire"
)

// fakeSupervisor is a minimal in-memory supervisor protocol for exercising
// the client helpers against a live server.
type fakeSupervisor struct {
	mu      sync.Mutex
	running bool
	params  control.Params
}

func (f *fakeSupervisor) handle(payload []byte, _ string) (any, error) {
	var req struct {
		Request string          `json:"request"`
		Data    wire.RawMessage `json:"data"`
	}
	if err := wire.Unmarshal(payload, &req); err != nil {
		return nil, rpc.Errorf(rpc.KindMalformedRequest, "bad request")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch req.Request {
	case "status":
		return supervise.StatusReply{Running: f.running, Reason: supervise.ReasonNeverStarted}, nil
	case "start":
		if f.running {
			return nil, rpc.Errorf(rpc.KindConflict, "instance running already")
		}
		f.running = true
		return "OK", nil
	case "stop":
		f.running = false
		return "OK", nil
	case "get_params":
		return f.params, nil
	case "set_params":
		params, err := control.ParamsFromJSON(req.Data)
		if err != nil {
			return nil, rpc.Errorf(rpc.KindValidation, "%v", err)
		}
		f.params = params
		return "OK", nil
	case "get_state":
		if !f.running {
			return nil, nil
		}
		return control.State{Phase: control.PhaseCool}, nil
	}
	return nil, rpc.Errorf(rpc.KindMalformedRequest, "unknown request %q", req.Request)
}

func startFakeSupervisor(t *testing.T) (*fakeSupervisor, *rpc.Client) {
	t.Helper()
	fake := &fakeSupervisor{params: control.Params{Low: 20, High: 24, FanRetain: 30, TickTime: 5}}

	srv, err := rpc.Listen(rpc.ServerConfig{
		Host:    "127.0.0.1",
		Port:    0,
		Handler: fake.handle,
		Logger:  log.NewLogger("cmd-test"),
	})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() { _ = srv.Close() })

	client := rpc.NewClient(srv.Addr().String())
	t.Cleanup(func() { _ = client.Close() })
	return fake, client
}

func TestCallRoundTrip(t *testing.T) {
	_, client := startFakeSupervisor(t)

	var reply supervise.StatusReply
	if err := call(client, "status", nil, &reply); err != nil {
		t.Fatalf("status call failed: %v", err)
	}
	if reply.Running {
		t.Error("fresh supervisor reports running")
	}

	var params control.Params
	if err := call(client, "get_params", nil, &params); err != nil {
		t.Fatalf("get_params call failed: %v", err)
	}
	if params.Low != 20 || params.High != 24 {
		t.Errorf("params = %+v", params)
	}
}

func TestCallCarriesData(t *testing.T) {
	fake, client := startFakeSupervisor(t)

	next := control.Params{Low: 18, High: 22, FanRetain: 10, TickTime: 2}
	var reply string
	if err := call(client, "set_params", next, &reply); err != nil {
		t.Fatalf("set_params call failed: %v", err)
	}
	if reply != "OK" {
		t.Errorf("reply = %q", reply)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.params != next {
		t.Errorf("stored params = %+v, want %+v", fake.params, next)
	}
}

func TestAsExitConflictCode(t *testing.T) {
	_, client := startFakeSupervisor(t)

	var reply string
	if err := call(client, "start", nil, &reply); err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	err := asExit(call(client, "start", nil, nil))
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("asExit returned %T, want cli.ExitCoder", err)
	}
	if coder.ExitCode() != exitConflict {
		t.Errorf("exit code = %d, want %d", coder.ExitCode(), exitConflict)
	}
}

func TestAsExitFailureCode(t *testing.T) {
	// Port 1 on loopback refuses connections.
	client := rpc.NewClient("127.0.0.1:1")
	defer client.Close()

	err := asExit(call(client, "status", nil, nil))
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("asExit returned %T, want cli.ExitCoder", err)
	}
	if coder.ExitCode() != exitFailure {
		t.Errorf("exit code = %d, want %d", coder.ExitCode(), exitFailure)
	}
}

func TestAsExitNil(t *testing.T) {
	if err := asExit(nil); err != nil {
		t.Errorf("asExit(nil) = %v", err)
	}
}

// testContext builds a cli.Context with the given flag values set.
func testContext(t *testing.T, values map[string]string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("addr", "", "")
	set.String("config", "", "")
	for name, value := range values {
		if err := set.Set(name, value); err != nil {
			t.Fatalf("set flag %s: %v", name, err)
		}
	}
	return cli.NewContext(nil, set, nil)
}

func TestSupervisorAddrFlagWins(t *testing.T) {
	addr, err := supervisorAddr(testContext(t, map[string]string{"addr": "10.1.2.3:9999"}))
	if err != nil {
		t.Fatalf("supervisorAddr: %v", err)
	}
	if addr != "10.1.2.3:9999" {
		t.Errorf("addr = %s", addr)
	}
}

func TestSupervisorAddrFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chiller.yaml")
	content := "supervisor:\n  host: 192.168.7.2\n  port: 6000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	addr, err := supervisorAddr(testContext(t, map[string]string{"config": path}))
	if err != nil {
		t.Fatalf("supervisorAddr: %v", err)
	}
	if addr != "192.168.7.2:6000" {
		t.Errorf("addr = %s", addr)
	}
}

func TestSupervisorAddrDefault(t *testing.T) {
	// No flag, no file: built-in default.
	addr, err := supervisorAddr(testContext(t, map[string]string{
		"config": filepath.Join(t.TempDir(), "absent.yaml"),
	}))
	if err != nil {
		t.Fatalf("supervisorAddr: %v", err)
	}
	if addr != "127.0.0.1:4520" {
		t.Errorf("addr = %s", addr)
	}
}

func TestCommandWiring(t *testing.T) {
	commands := []*cli.Command{
		StatusCommand(),
		StateCommand(),
		ParamsCommand(),
		SetParamsCommand(),
		StartCommand(),
		StopCommand(),
		WatchCommand(),
		VersionCommand("deadbeef"),
	}

	want := []string{"status", "state", "params", "set-params", "start", "stop", "watch", "version"}
	for i, cmd := range commands {
		if cmd.Name != want[i] {
			t.Errorf("command %d = %q, want %q", i, cmd.Name, want[i])
		}
		if cmd.Action == nil {
			t.Errorf("command %q has no action", cmd.Name)
		}
	}
}

func TestSetParamsRequiresAllFlags(t *testing.T) {
	cmd := SetParamsCommand()
	required := map[string]bool{"low": false, "high": false, "fan-retain": false, "tick-time": false}
	for _, f := range cmd.Flags {
		ff, ok := f.(*cli.Float64Flag)
		if !ok {
			continue
		}
		if _, tracked := required[ff.Name]; tracked {
			required[ff.Name] = ff.Required
		}
	}
	for name, req := range required {
		if !req {
			t.Errorf("flag %q is not required", name)
		}
	}
}
